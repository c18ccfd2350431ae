package plinstall

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ReceiptName is written next to the installed directory.
const ReceiptName = ".plinstall-receipt.toml"

// Receipt records where the current installation came from.
type Receipt struct {
	Source        string    `toml:"source"`
	Archive       string    `toml:"archive,omitempty"`
	ArchiveDigest string    `toml:"archive_blake3,omitempty"`
	InstalledPath string    `toml:"installed_path"`
	InstalledAt   time.Time `toml:"installed_at"`
	Installer     string    `toml:"installer"`
}

func writeReceipt(destRoot string, r Receipt) error {
	data, err := toml.Marshal(r)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(destRoot, ReceiptName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(destRoot, ReceiptName))
}

// readReceipt loads the receipt in destRoot.
func readReceipt(destRoot string) (Receipt, error) {
	var r Receipt
	data, err := os.ReadFile(filepath.Join(destRoot, ReceiptName))
	if err != nil {
		return r, err
	}
	err = toml.Unmarshal(data, &r)
	return r, err
}
