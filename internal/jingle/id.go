package jingle

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// IDLength is the length of generated jingle codes.
const IDLength = 5

const maxIDAttempts = 32

var ErrIDExhausted = errors.New("could not generate a free jingle code")

// NewID returns a short code cut from a random UUID. taken reports codes that
// are already in use; nil means none are.
func NewID(taken func(string) bool) (string, error) {
	for range maxIDAttempts {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// SanitizeCode normalises a user-typed jingle code.
func SanitizeCode(code string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(code), "`"))
}

// SanitizeFilename reduces name to a safe base file name: no directories,
// no path escapes, no control or reserved characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "_"
	}
	return out
}
