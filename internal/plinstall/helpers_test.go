package plinstall

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

const (
	testPayloadX64 = "PharoLauncher-linux-3.0.1-x64"
	testPayloadX86 = "PharoLauncher-linux-3.0.1-x86"
)

func launcherScript(tag string) string {
	return "#!/usr/bin/env bash\n# " + tag + "\nexec ./pharo \"$@\"\n"
}

// writeLauncherDir creates parent/pharolauncher with an entry script and an
// image file, and returns the application directory.
func writeLauncherDir(t *testing.T, parent, tag string) string {
	t.Helper()
	app := filepath.Join(parent, InstalledDirName)
	require.NoError(t, os.MkdirAll(filepath.Join(app, "image"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, EntryScriptName), []byte(launcherScript(tag)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "image", "PharoLauncher.image"), []byte("image "+tag), 0o644))
	return app
}

type fixtureFile struct {
	name string
	body string
	mode os.FileMode
}

func launcherEntries(tag string) []fixtureFile {
	return []fixtureFile{
		{name: InstalledDirName + "/", mode: os.ModeDir | 0o755},
		{name: InstalledDirName + "/" + EntryScriptName, body: launcherScript(tag), mode: 0o755},
		{name: InstalledDirName + "/image/PharoLauncher.image", body: "image " + tag, mode: 0o644},
	}
}

// writeZip writes a zip archive holding files into dir/name.
func writeZip(t *testing.T, dir, name string, files []fixtureFile) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, ff := range files {
		hdr := &zip.FileHeader{Name: ff.name, Method: zip.Deflate, Modified: time.Now()}
		hdr.SetMode(ff.mode)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if ff.mode.IsRegular() {
			_, err = io.WriteString(w, ff.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return path
}

// writeLauncherZip writes a launcher archive whose content depends on tag.
func writeLauncherZip(t *testing.T, dir, payload, tag string) string {
	t.Helper()
	return writeZip(t, dir, payload+".zip", launcherEntries(tag))
}

// writeLauncherTarGz writes a gzip-compressed tarball of the launcher.
func writeLauncherTarGz(t *testing.T, dir, payload, tag string) string {
	t.Helper()
	path := filepath.Join(dir, payload+".tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, ff := range launcherEntries(tag) {
		hdr := &tar.Header{Name: ff.name, Mode: int64(ff.mode.Perm()), ModTime: time.Now()}
		if ff.mode.IsDir() {
			hdr.Typeflag = tar.TypeDir
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(ff.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !ff.mode.IsDir() {
			_, err := io.WriteString(tw, ff.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return path
}

// newTestClassifier builds a classifier that never runs external tools.
func newTestClassifier(t *testing.T) (*Classifier, *TempRegistry) {
	t.Helper()
	temps := NewTempRegistry(t.TempDir())
	t.Cleanup(func() { _ = temps.Release() })
	x := &Extractor{Mode: ExtractBuiltin, Out: io.Discard}
	return NewClassifier(x, temps), temps
}

// scriptedPrompter answers prompts from input and records everything printed.
func scriptedPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewPrompter(strings.NewReader(input), out), out
}

// isolateEnv points HOME and the XDG directories at a temporary tree.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	// Registered first so it runs after the environment is restored.
	t.Cleanup(func() {
		xdg.Reload()
		zerolog.SetGlobalLevel(zerolog.Disabled)
		log.Logger = zerolog.Nop()
	})
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
	t.Setenv("XDG_DOWNLOAD_DIR", filepath.Join(home, "Downloads"))
	xdg.Reload()
	return home
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// recordingConfirmer returns fixed answers and counts the questions asked.
type recordingConfirmer struct {
	answer    bool
	questions []string
}

func (r *recordingConfirmer) Confirm(_ bool, format string, a ...any) bool {
	r.questions = append(r.questions, format)
	return r.answer
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// allocated returns the directories registered so far.
func (r *TempRegistry) allocated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dirs...)
}
