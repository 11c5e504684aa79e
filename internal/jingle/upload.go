package jingle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tcolgate/mp3"
)

var (
	ErrNotMP3     = errors.New("only .mp3 files are accepted")
	ErrTooLarge   = errors.New("file is too big")
	ErrTooLong    = errors.New("jingle is too long")
	ErrFileExists = errors.New("a file with this name already exists")
	ErrEmptyTitle = errors.New("title is empty")
)

// Limits bound what Add accepts. Zero values disable a check.
type Limits struct {
	MaxFileSize    int64
	MaxLength      time.Duration
	MaxTitleLength int
}

// Upload is a candidate jingle received from a user.
type Upload struct {
	Filename string
	Title    string
	Size     int64
	Body     io.Reader
}

// TruncateTitle trims whitespace and cuts title to at most limit runes.
func TruncateTitle(title string, limit int) string {
	title = strings.TrimSpace(title)
	if limit <= 0 {
		return title
	}
	if r := []rune(title); len(r) > limit {
		return string(r[:limit])
	}
	return title
}

// AudioLength decodes every MP3 frame in r and sums their durations.
func AudioLength(r io.Reader) (time.Duration, error) {
	d := mp3.NewDecoder(r)

	var (
		f       mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := d.Decode(&f, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("decode mp3: %w", err)
		}
		total += f.Duration()
	}
	return total, nil
}

func fileAudioLength(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return AudioLength(f)
}

// Add validates an upload, stores it in the catalog directory with a fresh
// sidecar, and reloads the catalog. A rejected upload leaves no files behind.
func (c *Catalog) Add(u Upload, limits Limits) (Jingle, error) {
	title := TruncateTitle(u.Title, limits.MaxTitleLength)
	if title == "" {
		return Jingle{}, ErrEmptyTitle
	}

	name := SanitizeFilename(u.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".mp3") {
		return Jingle{}, ErrNotMP3
	}
	if limits.MaxFileSize > 0 && u.Size >= limits.MaxFileSize {
		return Jingle{}, ErrTooLarge
	}

	target := filepath.Join(c.dir, name)
	if _, err := os.Stat(target); err == nil {
		return Jingle{}, ErrFileExists
	}

	tmp, err := os.CreateTemp(c.dir, ".upload-*.mp3")
	if err != nil {
		return Jingle{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	body := u.Body
	if limits.MaxFileSize > 0 {
		body = io.LimitReader(u.Body, limits.MaxFileSize+1)
	}
	n, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Jingle{}, fmt.Errorf("save upload: %w", err)
	}
	if limits.MaxFileSize > 0 && n >= limits.MaxFileSize {
		return Jingle{}, ErrTooLarge
	}

	length, err := fileAudioLength(tmp.Name())
	if err != nil {
		return Jingle{}, errors.Join(ErrNotMP3, err)
	}
	if length <= 0 {
		return Jingle{}, ErrNotMP3
	}
	if limits.MaxLength > 0 && length > limits.MaxLength {
		return Jingle{}, fmt.Errorf("%w (%.1f s)", ErrTooLong, length.Seconds())
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return Jingle{}, fmt.Errorf("move upload into place: %w", err)
	}

	id, err := NewID(c.Has)
	if err != nil {
		os.Remove(target)
		return Jingle{}, err
	}

	j, err := WriteMeta(target, id, title, length)
	if err != nil {
		os.Remove(target)
		return Jingle{}, err
	}

	c.log.Info().Str("id", j.ID).Str("title", j.Title).Str("file", name).Msg("Saved jingle")

	if _, err := c.Reload(); err != nil {
		return j, err
	}
	return j, nil
}
