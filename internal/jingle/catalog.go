package jingle

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var ErrEmptyCatalog = errors.New("no jingles available")

type snapshot struct {
	byID  map[string]Jingle
	order []Jingle
}

// Catalog is the set of jingles found in one directory. Reload swaps the
// whole set at once, so readers see either the old or the new catalog.
type Catalog struct {
	dir  string
	log  zerolog.Logger
	snap atomic.Pointer[snapshot]
}

// NewCatalog returns an empty catalog over dir. Call Reload to populate it.
func NewCatalog(dir string, log zerolog.Logger) *Catalog {
	c := &Catalog{
		dir: dir,
		log: log.With().Str("component", "catalog").Logger(),
	}
	c.snap.Store(&snapshot{byID: map[string]Jingle{}})
	return c
}

// Dir returns the jingles directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Reload rescans the directory and replaces the catalog. Broken sidecars are
// logged and skipped; only an unreadable directory fails the reload, in which
// case the previous catalog stays in place.
func (c *Catalog) Reload() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read jingles directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), MetaSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	next := &snapshot{byID: make(map[string]Jingle, len(names))}
	for _, name := range names {
		metaPath := filepath.Join(c.dir, name)
		audioPath := AudioPath(metaPath)

		if _, err := os.Stat(audioPath); err != nil {
			c.log.Warn().Str("meta", name).Msg("Meta file has no matching audio file, skipping")
			continue
		}

		m, err := readMeta(metaPath)
		if err != nil {
			c.log.Warn().Err(err).Str("meta", name).Msg("Invalid meta file, skipping")
			continue
		}

		if prev, dup := next.byID[*m.ID]; dup {
			c.log.Warn().
				Str("meta", name).
				Str("id", *m.ID).
				Str("taken_by", prev.Filename()).
				Msg("Duplicate jingle code, skipping")
			continue
		}

		j := Jingle{ID: *m.ID, Title: *m.Title, Path: audioPath, Length: float64(*m.Length)}
		next.byID[j.ID] = j
		next.order = append(next.order, j)
	}

	c.snap.Store(next)
	c.log.Info().Int("count", len(next.order)).Msg("Loaded jingles")
	return len(next.order), nil
}

// Get looks a jingle up by code.
func (c *Catalog) Get(id string) (Jingle, bool) {
	j, ok := c.snap.Load().byID[id]
	return j, ok
}

// Has reports whether id is a known code.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// All returns the jingles in catalog order.
func (c *Catalog) All() []Jingle {
	return append([]Jingle(nil), c.snap.Load().order...)
}

// Len returns the number of jingles.
func (c *Catalog) Len() int {
	return len(c.snap.Load().order)
}

// Random picks a jingle uniformly.
func (c *Catalog) Random() (Jingle, error) {
	return c.RandomWith(rand.IntN)
}

// RandomWith picks a jingle using intn, which must return a value in [0, n).
func (c *Catalog) RandomWith(intn func(n int) int) (Jingle, error) {
	order := c.snap.Load().order
	if len(order) == 0 {
		return Jingle{}, ErrEmptyCatalog
	}
	return order[intn(len(order))], nil
}

// Lines renders the catalog for listings.
func (c *Catalog) Lines() []string {
	return FormatLines(c.snap.Load().order)
}
