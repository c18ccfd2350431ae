package plinstall

import "io"

// Disambiguate reduces the collected candidates to exactly one. With none it
// fails with ErrNotFound, with one it asks for confirmation, with several it
// shows a menu. The choice is mapped back by position, never by label.
func Disambiguate(cands []Candidate, ui Chooser, out io.Writer) (Candidate, error) {
	switch len(cands) {
	case 0:
		return Candidate{}, newError(ErrNotFound, "no Pharo Launcher archive or installation was found")
	case 1:
		arrowf(out, colSuccess, "Found Pharo Launcher at %s", cands[0].Label())
		if !ui.Confirm(true, "Install it?") {
			return Candidate{}, newError(ErrCancelled, "installation cancelled")
		}
		return cands[0], nil
	}

	labels := make([]string, len(cands))
	for i, c := range cands {
		labels[i] = c.Label()
	}
	idx, ok := ui.Select("Several Pharo Launcher packages were found. Which one should be installed?", labels)
	if !ok {
		return Candidate{}, newError(ErrCancelled, "installation cancelled")
	}
	if idx < 0 || idx >= len(cands) {
		return Candidate{}, newErrorf(ErrInternal, "selection %d does not match any of the %d candidates", idx+1, len(cands))
	}
	return cands[idx], nil
}
