package plinstall

import (
	"fmt"
	"path/filepath"
)

// SearchEntry pairs the path being classified with the path shown to the
// user. Once an archive is expanded, SearchPath points into a temporary
// directory while DisplayPath keeps the original location.
type SearchEntry struct {
	SearchPath  string
	DisplayPath string
	Archive     string // archive this branch was expanded from, if any
	Digest      string // BLAKE3 digest of Archive
}

// derive returns a child entry inheriting everything but the search path.
func (e SearchEntry) derive(searchPath string) SearchEntry {
	e.SearchPath = searchPath
	return e
}

// Candidate is a resolved installable directory and where it came from.
type Candidate struct {
	InstallPath string
	DisplayPath string
	Archive     string
	Digest      string
}

// Label is the text shown when choosing between candidates. Several
// candidates may share a DisplayPath, so the archive name is appended.
func (c Candidate) Label() string {
	if c.Archive != "" && c.Archive != c.DisplayPath {
		return fmt.Sprintf("%s (%s)", c.DisplayPath, filepath.Base(c.Archive))
	}
	return c.DisplayPath
}

// Collector accumulates candidates in discovery order.
type Collector struct {
	candidates []Candidate
}

func (c *Collector) Add(cand Candidate) {
	c.candidates = append(c.candidates, cand)
}

// Candidates returns a copy of the collected candidates.
func (c *Collector) Candidates() []Candidate {
	return append([]Candidate(nil), c.candidates...)
}
