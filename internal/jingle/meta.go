package jingle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// MetaSuffix is appended to the audio file name to form its sidecar.
const MetaSuffix = ".meta"

type meta struct {
	ID     *string  `json:"id"`
	Title  *string  `json:"title"`
	Length *seconds `json:"length"`
}

// seconds accepts a JSON number or a numeric string such as "3.2".
type seconds float64

func (s *seconds) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("length %s is not a number", data)
	}
	*s = seconds(v)
	return nil
}

// MetaPath returns the sidecar path for an audio file.
func MetaPath(audioPath string) string {
	return audioPath + MetaSuffix
}

// AudioPath returns the audio file a sidecar describes.
func AudioPath(metaPath string) string {
	return strings.TrimSuffix(metaPath, MetaSuffix)
}

func readMeta(path string) (meta, error) {
	var m meta

	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("malformed meta: %w", err)
	}

	var missing []error
	if m.ID == nil || *m.ID == "" {
		missing = append(missing, errors.New(`missing "id" field`))
	}
	if m.Title == nil {
		missing = append(missing, errors.New(`missing "title" field`))
	}
	if m.Length == nil {
		missing = append(missing, errors.New(`missing "length" field`))
	}
	return m, errors.Join(missing...)
}

// WriteMeta writes the sidecar for audioPath. length is the raw audio length;
// the stored value adds LeadIn and is rounded to one decimal.
func WriteMeta(audioPath, id, title string, length time.Duration) (Jingle, error) {
	total := seconds(math.Round((length+LeadIn).Seconds()*10) / 10)

	data, err := json.MarshalIndent(meta{ID: &id, Title: &title, Length: &total}, "", "  ")
	if err != nil {
		return Jingle{}, fmt.Errorf("marshal meta: %w", err)
	}
	// a reload must never see a half-written sidecar
	path := MetaPath(audioPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return Jingle{}, fmt.Errorf("write meta: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Jingle{}, fmt.Errorf("rename meta: %w", err)
	}

	return Jingle{ID: id, Title: title, Path: audioPath, Length: float64(total)}, nil
}
