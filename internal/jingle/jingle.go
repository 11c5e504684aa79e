// Package jingle manages the on-disk jingle catalog: mp3 files with a JSON
// ".meta" sidecar describing each one.
package jingle

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// LeadIn is the silence played before every jingle. It is already included
// in Jingle.Length.
const LeadIn = 200 * time.Millisecond

// Jingle is one playable clip. Values are immutable once loaded.
type Jingle struct {
	ID     string
	Title  string
	Path   string
	Length float64 // seconds, lead-in included
}

// Filename returns the audio file's base name.
func (j Jingle) Filename() string {
	return filepath.Base(j.Path)
}

// Duration returns Length as a time.Duration.
func (j Jingle) Duration() time.Duration {
	return time.Duration(j.Length * float64(time.Second))
}

// Line renders the jingle the way listings show it: "[id](filename) title".
func (j Jingle) Line() string {
	return fmt.Sprintf("[%s](%s) %s", j.ID, j.Filename(), j.Title)
}

// FormatLines renders one listing line per jingle, preserving order.
func FormatLines(js []Jingle) []string {
	lines := make([]string, len(js))
	for i, j := range js {
		lines[i] = j.Line()
	}
	return lines
}

// Describe is the short human form used in chat replies.
func (j Jingle) Describe() string {
	return fmt.Sprintf("`%s` (%s)", strings.TrimSpace(j.Title), j.Filename())
}
