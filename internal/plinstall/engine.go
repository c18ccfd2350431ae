package plinstall

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
)

// Engine runs one resolution pass: search, disambiguate, install.
type Engine struct {
	Resolver  *Resolver
	Chooser   Chooser
	Installer *Installer
	Out       io.Writer
}

// Run searches roots and installs the chosen candidate into dest. The
// returned error carries the code that determines the exit status.
func (e *Engine) Run(ctx context.Context, roots []string, dest string) (Result, error) {
	logState(StateSearching)
	arrowf(e.Out, colSuccess, "Searching for Pharo Launcher")
	cands, err := e.Resolver.Resolve(ctx, roots)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	if len(cands) == 0 {
		err := newError(ErrNotFound, "no Pharo Launcher archive or installation was found")
		return Result{Outcome: OutcomeNotFound}, err.WithDetail("roots", roots)
	}
	logState(StateCollected)

	logState(StateConfirming)
	cand, err := Disambiguate(cands, e.Chooser, e.Out)
	if err != nil {
		return Result{Outcome: outcomeFor(err)}, err
	}

	logState(StateInstalling)
	res, err := e.Installer.Install(ctx, cand, dest)
	log.Info().Stringer("outcome", res.Outcome).Str("path", res.FinalPath).Msg("Resolution pass finished")
	return res, err
}

func logState(s State) {
	log.Debug().Str("state", string(s)).Msg("State transition")
}
