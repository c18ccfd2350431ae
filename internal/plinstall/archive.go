package plinstall

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
	"golang.org/x/sys/unix"
)

// ExtractorMode selects how archives are expanded.
type ExtractorMode string

const (
	// ExtractSystem uses unzip/tar and offers to install them when missing.
	ExtractSystem ExtractorMode = "system"
	// ExtractBuiltin never runs an external tool.
	ExtractBuiltin ExtractorMode = "builtin"
	// ExtractAuto uses the system tool when present, builtin otherwise.
	ExtractAuto ExtractorMode = "auto"
)

// Extractor expands launcher archives into a directory.
type Extractor struct {
	Mode     ExtractorMode
	Exec     *Executor // runs unzip/tar
	Tools    *Toolchain
	Progress bool      // show a progress bar for builtin extraction
	Out      io.Writer // progress bar destination
}

// toolFor returns the external program able to expand an archive with ext.
func toolFor(ext string) string {
	if ext == ".zip" {
		return "unzip"
	}
	return "tar"
}

// Extract expands archive into dest, which must already exist.
func (x *Extractor) Extract(ctx context.Context, archive, dest string) error {
	ext := archiveExt(archive)
	if ext == "" {
		return newErrorf(ErrCommand, "unsupported archive format: %s", archive)
	}
	tool := toolFor(ext)

	useSystem := false
	switch x.Mode {
	case ExtractBuiltin:
	case ExtractAuto:
		_, err := exec.LookPath(tool)
		useSystem = err == nil
	default:
		if err := x.Tools.Ensure(ctx, tool); err != nil {
			if ctx.Err() != nil {
				return wrapError(err, ErrInterrupted, "extraction tool setup interrupted")
			}
			return err
		}
		useSystem = true
	}

	if useSystem {
		debugf("Extracting %s with system %s", archive, tool)
		var cmd *exec.Cmd
		if tool == "unzip" {
			cmd = exec.Command(tool, "-q", archive, "-d", dest)
		} else {
			cmd = exec.Command(tool, "xf", archive, "-C", dest)
		}
		if err := x.Exec.Run(cmd); err != nil {
			return extractionError(ctx, archive, err)
		}
		return nil
	}

	debugf("Extracting %s with builtin extractor", archive)
	var err error
	if ext == ".zip" {
		err = x.unzipGo(ctx, archive, dest)
	} else {
		err = x.extractTar(ctx, archive, dest, ext)
	}
	if err != nil {
		return extractionError(ctx, archive, err)
	}
	return nil
}

// extractionError reports a cancelled extraction as an interruption rather
// than as a failed command.
func extractionError(ctx context.Context, archive string, err error) error {
	if ctx.Err() != nil {
		return wrapErrorf(err, ErrInterrupted, "extraction of %s interrupted", filepath.Base(archive))
	}
	return wrapErrorf(err, ErrCommand, "extraction of %s failed", filepath.Base(archive))
}

func (x *Extractor) progressWriter() io.Writer {
	if x.Out != nil {
		return x.Out
	}
	return os.Stderr
}

func (x *Extractor) unzipGo(ctx context.Context, src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if x.Progress {
		bar = progressbar.NewOptions(len(r.File),
			progressbar.OptionSetWriter(x.progressWriter()),
			progressbar.OptionSetDescription("Extracting "+filepath.Base(src)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		fpath := filepath.Join(dest, f.Name)

		// Zip Slip: every entry must land inside dest.
		if !strings.HasPrefix(fpath, dest+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path in archive: %s", f.Name)
		}

		mode := f.Mode()
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}

		if mode&os.ModeSymlink != 0 {
			target, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return err
			}
			if err := os.Symlink(string(target), fpath); err != nil && !os.IsExist(err) {
				return fmt.Errorf("failed to create symlink %s: %w", fpath, err)
			}
			continue
		}

		outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(outFile, rc)

		// Close inside the loop to avoid holding too many descriptors.
		outFile.Close()
		rc.Close()
		if err != nil {
			return err
		}
		_ = os.Chtimes(fpath, f.Modified, f.Modified)
	}
	return nil
}

// extractTar expands a (possibly compressed) tarball into dest, keeping the
// archive's top-level directory so the installed directory name survives.
func (x *Extractor) extractTar(ctx context.Context, src, dest, ext string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", src, err)
	}
	defer f.Close()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return err
	}

	var in io.Reader = f
	if x.Progress {
		if info, err := f.Stat(); err == nil {
			bar := progressbar.NewOptions64(info.Size(),
				progressbar.OptionSetWriter(x.progressWriter()),
				progressbar.OptionSetDescription("Extracting "+filepath.Base(src)),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
			defer bar.Finish()
			in = io.TeeReader(f, bar)
		}
	}

	var r io.Reader
	switch ext {
	case ".tar.gz", ".tgz":
		gz, err := pgzip.NewReader(in)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader for %s: %w", src, err)
		}
		defer gz.Close()
		r = gz
	case ".tar.bz2":
		r = bzip2.NewReader(in)
	case ".tar.xz":
		xr, err := xz.NewReader(in)
		if err != nil {
			return fmt.Errorf("failed to create xz reader for %s: %w", src, err)
		}
		r = xr
	case ".tar.zst":
		zr, err := zstd.NewReader(in)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader for %s: %w", src, err)
		}
		defer zr.Close()
		r = zr
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading tar header in %s: %w", src, err)
		}

		target := filepath.Join(dest, hdr.Name)
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path in archive: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeXHeader, tar.TypeXGlobalHeader:
			continue
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent dir for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("failed to write file %s: %w", target, err)
			}
			out.Close()
			if err := os.Chtimes(target, hdr.AccessTime, hdr.ModTime); err != nil {
				return fmt.Errorf("failed to set times for file %s: %w", target, err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
				return fmt.Errorf("failed to create symlink %s -> %s: %w", target, hdr.Linkname, err)
			}
			mtime := unix.NsecToTimeval(hdr.ModTime.UnixNano())
			if err := unix.Lutimes(target, []unix.Timeval{mtime, mtime}); err != nil {
				debugf("Warning: failed to set times for symlink %s: %v (continuing)", target, err)
			}
		default:
			debugf("Skipping unsupported tar entry type %c: %s", hdr.Typeflag, hdr.Name)
		}
	}
	return nil
}
