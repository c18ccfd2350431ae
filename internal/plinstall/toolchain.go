package plinstall

import (
	"context"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// packageManager describes how to install a package non-interactively.
type packageManager struct {
	Name string
	Args []string // the package name is appended
}

// knownPackageManagers is probed in order; the first one on PATH wins.
var knownPackageManagers = []packageManager{
	{Name: "apt-get", Args: []string{"install", "-y"}},
	{Name: "dnf", Args: []string{"install", "-y"}},
	{Name: "yum", Args: []string{"install", "-y"}},
	{Name: "pacman", Args: []string{"-S", "--noconfirm"}},
	{Name: "zypper", Args: []string{"--non-interactive", "install"}},
	{Name: "apk", Args: []string{"add"}},
	{Name: "xbps-install", Args: []string{"-y"}},
}

// Toolchain makes sure external extraction tools are available, installing
// them through the system package manager when the user agrees. Every tool
// gets at most one install attempt per invocation.
type Toolchain struct {
	RootExec  *Executor
	Confirm   Confirmer
	LookPath  func(string) (string, error)
	attempted map[string]bool
}

func NewToolchain(rootExec *Executor, confirm Confirmer) *Toolchain {
	return &Toolchain{RootExec: rootExec, Confirm: confirm, LookPath: exec.LookPath}
}

func (t *Toolchain) detectPackageManager() (packageManager, bool) {
	for _, pm := range knownPackageManagers {
		if _, err := t.LookPath(pm.Name); err == nil {
			return pm, true
		}
	}
	return packageManager{}, false
}

// Ensure returns nil once tool is on PATH.
func (t *Toolchain) Ensure(ctx context.Context, tool string) error {
	if _, err := t.LookPath(tool); err == nil {
		return nil
	}
	if t.attempted == nil {
		t.attempted = make(map[string]bool)
	}
	if t.attempted[tool] {
		return newErrorf(ErrToolMissing, "%s is required to extract the archive and is not installed", tool)
	}
	t.attempted[tool] = true

	pm, ok := t.detectPackageManager()
	if !ok {
		return newErrorf(ErrToolMissing, "%s is required to extract the archive, and no supported package manager was found to install it", tool)
	}
	if !t.Confirm.Confirm(true, "%s is required to extract the archive. Install it with %s?", tool, pm.Name) {
		return newErrorf(ErrToolMissing, "%s is required to extract the archive; installation declined", tool)
	}

	log.Info().Str("tool", tool).Str("packageManager", pm.Name).Msg("Installing extraction tool")
	args := append(append([]string(nil), pm.Args...), tool)
	cmd := exec.CommandContext(ctx, pm.Name, args...)
	if err := t.RootExec.Run(cmd); err != nil {
		return wrapErrorf(err, ErrCommand, "installing %s with %s failed", tool, pm.Name)
	}
	if _, err := t.LookPath(tool); err != nil {
		return newErrorf(ErrToolMissing, "%s is still not available after installing it with %s", tool, pm.Name)
	}
	return nil
}
