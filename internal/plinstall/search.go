package plinstall

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Worklist is a LIFO stack of pending search entries.
type Worklist struct {
	entries []SearchEntry
}

// Push adds entries so that they are popped in the order given.
func (w *Worklist) Push(entries ...SearchEntry) {
	for i := len(entries) - 1; i >= 0; i-- {
		w.entries = append(w.entries, entries[i])
	}
}

// Pop removes and returns the most recently pushed entry.
func (w *Worklist) Pop() (SearchEntry, bool) {
	if len(w.entries) == 0 {
		return SearchEntry{}, false
	}
	last := len(w.entries) - 1
	e := w.entries[last]
	w.entries = w.entries[:last]
	return e, true
}

func (w *Worklist) Len() int {
	return len(w.entries)
}

// Resolver drives the classifier over a worklist seeded from search roots.
type Resolver struct {
	Classifier *Classifier
}

func NewResolver(c *Classifier) *Resolver {
	return &Resolver{Classifier: c}
}

// Resolve searches roots and returns every candidate found, in discovery
// order. Each real path is classified at most once, which also guarantees
// termination on symlink loops and duplicated roots.
func (r *Resolver) Resolve(ctx context.Context, roots []string) ([]Candidate, error) {
	var (
		work      Worklist
		collector Collector
		visited   = make(map[string]bool)
	)

	seeds := make([]SearchEntry, 0, len(roots))
	for _, root := range roots {
		p, err := absPath(root)
		if err != nil {
			debugf("ignoring search root %q: %v", root, err)
			continue
		}
		seeds = append(seeds, SearchEntry{SearchPath: p, DisplayPath: p})
	}
	work.Push(seeds...)

	for {
		if err := ctx.Err(); err != nil {
			return collector.Candidates(), wrapError(err, ErrInterrupted, "search interrupted")
		}
		entry, ok := work.Pop()
		if !ok {
			break
		}

		resolved, err := filepath.EvalSymlinks(entry.SearchPath)
		if err != nil {
			if !os.IsNotExist(err) {
				debugf("skipping %s: %v", entry.SearchPath, err)
			}
			continue
		}
		if visited[resolved] {
			continue
		}
		visited[resolved] = true
		if !isReadable(resolved) {
			debugf("skipping unreadable %s", entry.SearchPath)
			continue
		}

		res, err := r.Classifier.Classify(ctx, entry)
		if err != nil {
			if ctx.Err() != nil && !IsErrorCode(err, ErrInterrupted) {
				return collector.Candidates(), wrapError(err, ErrInterrupted, "search interrupted")
			}
			return collector.Candidates(), err
		}
		log.Debug().
			Str("path", entry.SearchPath).
			Str("display", entry.DisplayPath).
			Stringer("shape", res.Shape).
			Int("next", len(res.Next)).
			Int("pending", work.Len()).
			Msg("Classified search path")

		work.Push(res.Next...)
		if res.Candidate != nil {
			collector.Add(*res.Candidate)
		}
	}

	return collector.Candidates(), nil
}
