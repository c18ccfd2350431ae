package plinstall

import (
	"os"
	"path/filepath"
)

// protectedDirs must never be removed when replacing an installation.
var protectedDirs = map[string]struct{}{
	"/":      {},
	"/bin":   {},
	"/boot":  {},
	"/dev":   {},
	"/etc":   {},
	"/home":  {},
	"/lib":   {},
	"/lib32": {},
	"/lib64": {},
	"/mnt":   {},
	"/opt":   {},
	"/proc":  {},
	"/root":  {},
	"/run":   {},
	"/sbin":  {},
	"/srv":   {},
	"/sys":   {},
	"/tmp":   {},
	"/usr":   {},
	"/var":   {},

	"/usr/bin":   {},
	"/usr/lib":   {},
	"/usr/local": {},
	"/usr/share": {},
	"/var/tmp":   {},
}

// checkRemovable refuses to delete system directories and the home directory.
func checkRemovable(path string) error {
	clean := filepath.Clean(path)
	if _, ok := protectedDirs[clean]; ok {
		return newErrorf(ErrUnwritable, "refusing to remove protected directory %s", clean)
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == clean {
		return newErrorf(ErrUnwritable, "refusing to remove the home directory %s", clean)
	}
	return nil
}
