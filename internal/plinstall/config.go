package plinstall

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PLINSTALL_"

// Config holds every tunable of one invocation.
type Config struct {
	Destination string        `koanf:"destination"`
	SearchRoots []string      `koanf:"search_roots"`
	TmpDir      string        `koanf:"tmp_dir"`
	Extractor   ExtractorMode `koanf:"extractor"`
	UI          string        `koanf:"ui"`
	Progress    bool          `koanf:"progress"`
	Receipt     bool          `koanf:"receipt"`
	Color       bool          `koanf:"color"`
	Verbosity   int           `koanf:"verbosity"`
}

// defaultSearchRoots are the current directory, the download directory
// and the home directory, in that order.
func defaultSearchRoots() []string {
	roots := []string{"."}
	if dl := xdg.UserDirs.Download; dl != "" {
		roots = append(roots, dl)
	} else {
		roots = append(roots, "~/Downloads")
	}
	return append(roots, "~")
}

func defaultValues() map[string]any {
	return map[string]any{
		"destination":  DefaultDestination,
		"search_roots": defaultSearchRoots(),
		"tmp_dir":      "",
		"extractor":    string(ExtractSystem),
		"ui":           "plain",
		"progress":     true,
		"receipt":      true,
		"color":        true,
		"verbosity":    0,
	}
}

// configFilePath honours PLINSTALL_CONFIG, then the XDG config directory.
func configFilePath() string {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "plinstall", "config.toml")
}

// LoadConfig layers defaults, the TOML config file (if present) and
// PLINSTALL_* environment variables, later layers winning.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, wrapError(err, ErrConfig, "failed to load defaults")
	}

	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, wrapErrorf(err, ErrConfig, "failed to load config from %s", path)
		}
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "search_roots" {
			return key, filepath.SplitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, wrapError(err, ErrConfig, "failed to load environment overrides")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, wrapError(err, ErrConfig, "invalid configuration")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Extractor {
	case ExtractSystem, ExtractBuiltin, ExtractAuto:
	default:
		return newErrorf(ErrConfig, "invalid extractor %q (want system, builtin or auto)", c.Extractor)
	}
	switch c.UI {
	case "plain", "tui":
	default:
		return newErrorf(ErrConfig, "invalid ui %q (want plain or tui)", c.UI)
	}
	if strings.TrimSpace(c.Destination) == "" {
		return newError(ErrConfig, "destination must not be empty")
	}
	if len(c.SearchRoots) == 0 {
		return newError(ErrConfig, "search_roots must not be empty")
	}
	return nil
}
