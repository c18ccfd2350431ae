package plinstall

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorklistPopsInPushOrder(t *testing.T) {
	var w Worklist
	w.Push(entryFor("a"), entryFor("b"))
	w.Push(entryFor("c"))

	var got []string
	for {
		e, ok := w.Pop()
		if !ok {
			break
		}
		got = append(got, e.SearchPath)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
	assert.Zero(t, w.Len())
}

func TestResolveInstalledCopy(t *testing.T) {
	c, temps := newTestClassifier(t)
	dest := t.TempDir()
	app := writeLauncherDir(t, dest, "installed")

	cands, err := NewResolver(c).Resolve(testContext(t), []string{dest})
	require.NoError(t, err)
	want := []Candidate{{InstallPath: app, DisplayPath: dest}}
	if diff := cmp.Diff(want, cands); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, temps.allocated())
}

func TestResolveTwoArchivesInDiscoveryOrder(t *testing.T) {
	c, temps := newTestClassifier(t)
	dir := t.TempDir()
	x64 := writeLauncherZip(t, dir, testPayloadX64, "x64")
	x86 := writeLauncherTarGz(t, dir, testPayloadX86, "x86")

	cands, err := NewResolver(c).Resolve(testContext(t), []string{dir})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Len(t, temps.allocated(), 2)

	assert.Equal(t, x64, cands[0].Archive)
	assert.Equal(t, x86, cands[1].Archive)
	for _, cand := range cands {
		assert.Equal(t, dir, cand.DisplayPath)
		assert.FileExists(t, filepath.Join(cand.InstallPath, EntryScriptName))
	}
	assert.NotEqual(t, cands[0].Label(), cands[1].Label())
}

func TestResolveDuplicateRootsAndIdenticalArchives(t *testing.T) {
	c, temps := newTestClassifier(t)
	a := t.TempDir()
	b := t.TempDir()
	archive := writeLauncherZip(t, a, testPayloadX64, "same")
	require.NoError(t, os.WriteFile(filepath.Join(b, filepath.Base(archive)), []byte(readFile(t, archive)), 0o644))

	cands, err := NewResolver(c).Resolve(testContext(t), []string{a, a, b})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, archive, cands[0].Archive)
	assert.Len(t, temps.allocated(), 1)
}

func TestResolveTerminatesOnSymlinkLoop(t *testing.T) {
	c, _ := newTestClassifier(t)
	root := t.TempDir()
	require.NoError(t, os.Symlink(root, filepath.Join(root, testPayloadX64)))

	cands, err := NewResolver(c).Resolve(testContext(t), []string{root})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestResolveSkipsMissingRoots(t *testing.T) {
	c, _ := newTestClassifier(t)
	dir := t.TempDir()
	writeLauncherDir(t, dir, "x")

	cands, err := NewResolver(c).Resolve(testContext(t), []string{filepath.Join(dir, "missing"), dir})
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestResolveNestedPayloads(t *testing.T) {
	c, _ := newTestClassifier(t)
	root := t.TempDir()
	writeLauncherDir(t, filepath.Join(root, testPayloadX64), "x64")

	cands, err := NewResolver(c).Resolve(testContext(t), []string{root})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, filepath.Join(root, testPayloadX64, InstalledDirName), cands[0].InstallPath)
	assert.Equal(t, root, cands[0].DisplayPath)
}

func TestResolveCancelled(t *testing.T) {
	c, _ := newTestClassifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(c).Resolve(ctx, []string{t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, ExitInterrupted, ExitCode(err))
}
