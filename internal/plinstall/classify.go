package plinstall

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Shape is the kind of filesystem location a search path turned out to be.
type Shape int

const (
	ShapeNone        Shape = iota
	ShapeArchiveDir        // directory holding launcher archives
	ShapeArchive           // a launcher archive file
	ShapePayloadsDir       // directory holding expanded archive directories
	ShapePayloadDir        // directory holding the installed directory
	ShapeAppDir            // the installed directory itself
)

func (s Shape) String() string {
	switch s {
	case ShapeArchiveDir:
		return "archive-dir"
	case ShapeArchive:
		return "archive"
	case ShapePayloadsDir:
		return "payloads-dir"
	case ShapePayloadDir:
		return "payload-dir"
	case ShapeAppDir:
		return "app-dir"
	default:
		return "none"
	}
}

// Classification is the result of classifying one SearchEntry: the entries
// it expands to, or the terminal candidate it is.
type Classification struct {
	Shape     Shape
	Next      []SearchEntry
	Candidate *Candidate
}

type recognizer struct {
	shape Shape
	match func(ctx context.Context, entry SearchEntry, info fs.FileInfo) (Classification, bool, error)
}

// Classifier decides which shape a path has and expands archives into
// registered temporary directories.
type Classifier struct {
	Extractor *Extractor
	Temps     *TempRegistry
	Exec      *Executor // runs file(1) on entry scripts; nil skips it

	expanded map[string]string // archive digest -> first archive path
}

func NewClassifier(x *Extractor, temps *TempRegistry) *Classifier {
	return &Classifier{Extractor: x, Temps: temps, expanded: make(map[string]string)}
}

// recognizers are tried in priority order; the first match wins.
func (c *Classifier) recognizers() []recognizer {
	return []recognizer{
		{ShapeArchiveDir, c.matchArchiveDir},
		{ShapeArchive, c.matchArchive},
		{ShapePayloadsDir, c.matchPayloadsDir},
		{ShapePayloadDir, c.matchPayloadDir},
		{ShapeAppDir, c.matchAppDir},
	}
}

// Classify categorizes entry. A path that matches nothing yields ShapeNone
// and no error.
func (c *Classifier) Classify(ctx context.Context, entry SearchEntry) (Classification, error) {
	info, err := os.Stat(entry.SearchPath)
	if err != nil {
		return Classification{Shape: ShapeNone}, nil
	}
	for _, r := range c.recognizers() {
		res, ok, err := r.match(ctx, entry, info)
		if err != nil {
			return Classification{Shape: r.shape}, err
		}
		if ok {
			res.Shape = r.shape
			return res, nil
		}
	}
	return Classification{Shape: ShapeNone}, nil
}

// readDirStat lists dir, resolving symlinked entries.
func readDirStat(dir string) []fs.FileInfo {
	entries, err := os.ReadDir(dir)
	if err != nil {
		debugf("cannot list %s: %v", dir, err)
		return nil
	}
	infos := make([]fs.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

func (c *Classifier) matchArchiveDir(_ context.Context, entry SearchEntry, info fs.FileInfo) (Classification, bool, error) {
	if !info.IsDir() {
		return Classification{}, false, nil
	}
	var res Classification
	for _, fi := range readDirStat(entry.SearchPath) {
		p := filepath.Join(entry.SearchPath, fi.Name())
		if !fi.Mode().IsRegular() || !IsArchiveName(fi.Name()) || !isReadable(p) {
			continue
		}
		res.Next = append(res.Next, entry.derive(p))
	}
	return res, len(res.Next) > 0, nil
}

func (c *Classifier) matchArchive(ctx context.Context, entry SearchEntry, info fs.FileInfo) (Classification, bool, error) {
	if !info.Mode().IsRegular() || !IsArchiveName(filepath.Base(entry.SearchPath)) {
		return Classification{}, false, nil
	}

	digest, err := fileDigest(entry.SearchPath)
	if err != nil {
		return Classification{}, false, wrapErrorf(err, ErrCommand, "reading archive %s failed", entry.SearchPath)
	}
	if first, seen := c.expanded[digest]; seen {
		log.Info().
			Str("archive", entry.SearchPath).
			Str("display", entry.DisplayPath).
			Str("sameAs", first).
			Msg("Skipping archive identical to one already extracted")
		return Classification{}, true, nil
	}

	dir, err := c.Temps.Allocate()
	if err != nil {
		return Classification{}, false, err
	}
	if err := c.Extractor.Extract(ctx, entry.SearchPath, dir); err != nil {
		return Classification{}, false, err
	}
	c.expanded[digest] = entry.SearchPath

	next := SearchEntry{
		SearchPath:  dir,
		DisplayPath: entry.DisplayPath,
		Archive:     entry.SearchPath,
		Digest:      digest,
	}
	return Classification{Next: []SearchEntry{next}}, true, nil
}

func (c *Classifier) matchPayloadsDir(_ context.Context, entry SearchEntry, info fs.FileInfo) (Classification, bool, error) {
	if !info.IsDir() {
		return Classification{}, false, nil
	}
	var res Classification
	for _, fi := range readDirStat(entry.SearchPath) {
		if fi.IsDir() && IsPayloadDirName(fi.Name()) {
			res.Next = append(res.Next, entry.derive(filepath.Join(entry.SearchPath, fi.Name())))
		}
	}
	return res, len(res.Next) > 0, nil
}

func (c *Classifier) matchPayloadDir(_ context.Context, entry SearchEntry, info fs.FileInfo) (Classification, bool, error) {
	if !info.IsDir() {
		return Classification{}, false, nil
	}
	dir := filepath.Join(entry.SearchPath, InstalledDirName)
	if !isDir(dir) {
		return Classification{}, false, nil
	}
	return Classification{Next: []SearchEntry{entry.derive(dir)}}, true, nil
}

func (c *Classifier) matchAppDir(ctx context.Context, entry SearchEntry, info fs.FileInfo) (Classification, bool, error) {
	if !info.IsDir() {
		return Classification{}, false, nil
	}
	script := filepath.Join(entry.SearchPath, EntryScriptName)
	fi, err := os.Stat(script)
	if err != nil || !fi.Mode().IsRegular() || !isReadable(script) || !c.isLauncherScript(ctx, script) {
		return Classification{}, false, nil
	}
	return Classification{Candidate: &Candidate{
		InstallPath: entry.SearchPath,
		DisplayPath: entry.DisplayPath,
		Archive:     entry.Archive,
		Digest:      entry.Digest,
	}}, true, nil
}

// isLauncherScript confirms the content sniff with file(1) when it is
// installed. A failing file run leaves the sniff's answer standing.
func (c *Classifier) isLauncherScript(ctx context.Context, path string) bool {
	if !isExecutableScript(path) {
		return false
	}
	if c.Exec == nil {
		return true
	}
	if _, err := exec.LookPath("file"); err != nil {
		return true
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "file", "--brief", "--mime-type", path)
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := c.Exec.Run(cmd); err != nil {
		debugf("file(1) failed on %s: %v", path, err)
		return true
	}
	mime := strings.TrimSpace(out.String())
	log.Trace().Str("path", path).Str("mime", mime).Msg("Entry script type")
	return isScriptMimeType(mime)
}

// isScriptMimeType accepts what file(1) reports for interpreter scripts.
func isScriptMimeType(mime string) bool {
	return strings.HasPrefix(mime, "text/") || mime == "application/x-shellscript"
}

// isExecutableScript reports whether path starts with an interpreter line
// and looks like text rather than a binary or a truncated file.
func isExecutableScript(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	buf = buf[:n]
	return bytes.HasPrefix(buf, []byte("#!")) && bytes.IndexByte(buf, 0) < 0
}
