package plinstall

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// probePrefix names the marker file used to detect that two paths are the
// same directory.
const probePrefix = ".plinstall-probe-"

// Installer moves a chosen candidate into the destination root.
type Installer struct {
	Confirm      Confirmer
	Exec         *Executor // runs mv for cross-device moves
	Out          io.Writer
	WriteReceipt bool

	rename func(oldpath, newpath string) error
}

func NewInstaller(confirm Confirmer, runner *Executor, out io.Writer) *Installer {
	return &Installer{Confirm: confirm, Exec: runner, Out: out, WriteReceipt: true, rename: os.Rename}
}

// samePayload reports whether dir and other are the same directory, by
// creating a uniquely named marker in dir and looking for it in other.
func samePayload(dir, other string) (bool, error) {
	name := probePrefix + uuid.NewString()
	marker := filepath.Join(dir, name)
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return false, err
	}
	f.Close()
	defer os.Remove(marker)

	_, err = os.Lstat(filepath.Join(other, name))
	return err == nil, nil
}

// within reports whether path is root or lies below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// Install relocates cand into destRoot. It never deletes anything without
// consent and skips the move when the destination already is the source.
func (in *Installer) Install(ctx context.Context, cand Candidate, destRoot string) (Result, error) {
	res := Result{Outcome: OutcomeFailed, Candidate: cand}

	destRoot, err := absPath(destRoot)
	if err != nil {
		return res, wrapError(err, ErrUnwritable, "invalid destination")
	}
	finalPath := filepath.Join(destRoot, filepath.Base(cand.InstallPath))
	res.FinalPath = finalPath
	logger := log.With().Str("source", cand.InstallPath).Str("target", finalPath).Logger()

	if _, err := os.Lstat(finalPath); err == nil {
		if isDir(finalPath) {
			same, err := samePayload(finalPath, cand.InstallPath)
			if err != nil {
				if errors.Is(err, fs.ErrPermission) {
					return res, wrapErrorf(err, ErrUnwritable, "%s is not writable", finalPath)
				}
				return res, wrapErrorf(err, ErrCommand, "checking %s failed", finalPath)
			}
			if same {
				if r, err := readReceipt(destRoot); err == nil {
					logger = logger.With().Str("installedFrom", r.Source).Time("installedAt", r.InstalledAt).Logger()
				}
				logger.Info().Msg("Destination already holds this payload")
				arrowf(in.Out, colSuccess, "Pharo Launcher is already installed at %s", finalPath)
				res.Outcome = OutcomeDuplicateSkipped
				return res, nil
			}
			if !isWritable(finalPath) {
				return res, newErrorf(ErrUnwritable, "%s is not writable", finalPath)
			}
		}
		if !isWritable(destRoot) {
			return res, newErrorf(ErrUnwritable, "%s is not writable", destRoot)
		}
		if within(cand.InstallPath, finalPath) {
			return res, newErrorf(ErrCommand, "%s lies inside %s and cannot replace it", cand.InstallPath, finalPath)
		}
		if !in.Confirm.Confirm(false, "%s already exists. Overwrite it?", finalPath) {
			res.Outcome = OutcomeAborted
			return res, newError(ErrCancelled, "installation cancelled, existing installation left untouched")
		}
		if err := checkRemovable(finalPath); err != nil {
			return res, err
		}
		logger.Info().Msg("Removing previous installation")
		if err := os.RemoveAll(finalPath); err != nil {
			return res, wrapErrorf(err, ErrCommand, "removing %s failed", finalPath)
		}
	} else if !os.IsNotExist(err) {
		return res, wrapErrorf(err, ErrUnwritable, "cannot inspect %s", finalPath)
	}

	if info, err := os.Stat(destRoot); err == nil {
		if !info.IsDir() {
			return res, newErrorf(ErrUnwritable, "%s is not a directory", destRoot)
		}
		if !isWritable(destRoot) {
			return res, newErrorf(ErrUnwritable, "%s is not writable", destRoot)
		}
	} else {
		if !in.Confirm.Confirm(true, "%s does not exist. Create it?", destRoot) {
			return res, newErrorf(ErrDestMissing, "destination %s does not exist", destRoot)
		}
		if err := os.MkdirAll(destRoot, 0o755); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return res, wrapErrorf(err, ErrUnwritable, "creating %s failed", destRoot)
			}
			return res, wrapErrorf(err, ErrCommand, "creating %s failed", destRoot)
		}
	}

	if err := in.move(ctx, cand.InstallPath, finalPath); err != nil {
		return res, err
	}
	logger.Info().Msg("Relocated payload")

	if in.WriteReceipt {
		err := writeReceipt(destRoot, Receipt{
			Source:        cand.Label(),
			Archive:       cand.Archive,
			ArchiveDigest: cand.Digest,
			InstalledPath: finalPath,
			InstalledAt:   time.Now().UTC().Truncate(time.Second),
			Installer:     "plinstall " + version,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to write install receipt")
		}
	}

	res.Outcome = OutcomeInstalled
	arrowf(in.Out, colSuccess, "Pharo Launcher installed at %s", finalPath)
	arrowf(in.Out, colNote, "Start it with %s", filepath.Join(finalPath, EntryScriptName))
	return res, nil
}

// move renames src to dst. Across filesystems the move is handed to mv.
func (in *Installer) move(ctx context.Context, src, dst string) error {
	rename := in.rename
	if rename == nil {
		rename = os.Rename
	}
	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return wrapErrorf(err, ErrCommand, "moving %s to %s failed", src, dst)
	}

	debugf("%s and %s are on different filesystems, using mv", src, dst)
	runner := in.Exec
	if runner == nil {
		runner = NewExecutor(ctx)
	}
	if err := runner.Run(exec.Command("mv", "--", src, dst)); err != nil {
		return wrapErrorf(err, ErrCommand, "moving %s to %s failed", src, dst)
	}
	return nil
}
