package plinstall

import (
	"regexp"
	"strings"
)

const (
	// InstalledDirName is the directory an archive expands to and the
	// directory name used under the destination root.
	InstalledDirName = "pharolauncher"
	// EntryScriptName is the launcher script inside InstalledDirName.
	EntryScriptName = "pharo-launcher"
	// DefaultDestination is where the launcher is installed unless overridden.
	DefaultDestination = "~/Pharo"
)

// archiveExtensions lists every supported archive suffix, longest first.
var archiveExtensions = []string{".tar.gz", ".tar.xz", ".tar.zst", ".tar.bz2", ".tgz", ".zip"}

// payloadStem matches PharoLauncher-linux-<version>-<arch>.
const payloadStem = `PharoLauncher-linux-[0-9][0-9A-Za-z.+~]*-[A-Za-z0-9_]+`

var (
	archiveNameRe = regexp.MustCompile(`^` + payloadStem + `(\.zip|\.tgz|\.tar\.(gz|xz|zst|bz2))$`)
	payloadDirRe  = regexp.MustCompile(`^` + payloadStem + `$`)
)

// IsArchiveName reports whether name is a launcher archive file name.
func IsArchiveName(name string) bool {
	return archiveNameRe.MatchString(name)
}

// IsPayloadDirName reports whether name is an expanded launcher archive directory.
func IsPayloadDirName(name string) bool {
	return payloadDirRe.MatchString(name)
}

// archiveExt returns the archive suffix of name, or "" if unsupported.
func archiveExt(name string) string {
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ""
}
