// Package config loads ttlcached's configuration from command-line flags
// and, optionally, a YAML file. It mirrors lwan's main.c argument surface
// (original_source/lwan/main.c: --root, --listen, --config) as a single
// merged struct rather than the source's mutually-exclusive
// ARGS_USE_CONFIG / ARGS_SERVE_FILES modes: flags always take precedence
// over the file, and the file is optional either way.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds everything ttlcached needs to start.
type Config struct {
	// Listen is the address the HTTP server binds to, e.g. ":8080".
	Listen string
	// Root is the directory FileServer serves from.
	Root string
	// CacheTTL is the time-to-live applied to entries in the demo cache.
	CacheTTL time.Duration
	// ConfigFile, if set, names a YAML file merged beneath the flags.
	ConfigFile string
}

// yamlConfig is Config's on-disk shape: CacheTTL is a duration string
// ("45s") rather than Config's time.Duration, since yaml.v3 has no builtin
// conversion from a duration string into an int64-kind field.
type yamlConfig struct {
	Listen   string `yaml:"listen"`
	Root     string `yaml:"root"`
	CacheTTL string `yaml:"cache_ttl"`
}

// Default returns the baseline configuration applied before flags or a
// config file are merged in.
func Default() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Listen:   "*:8080",
		Root:     cwd,
		CacheTTL: 60 * time.Second,
	}
}

// Load parses args (typically os.Args[1:]) into a Config seeded from
// Default, merging a YAML file named by --config (if any) before applying
// the flags a second time so explicit flags always win.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("ttlcached", pflag.ContinueOnError)
	listen := fs.StringP("listen", "l", cfg.Listen, "Listener address, e.g. *:8080")
	root := fs.StringP("root", "r", cfg.Root, "Path to serve files from")
	ttl := fs.Duration("cache-ttl", cfg.CacheTTL, "TTL applied to demo cache entries")
	configFile := fs.StringP("config", "c", "", "Path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configFile != "" {
		merged, err := mergeFile(cfg, *configFile)
		if err != nil {
			return Config{}, err
		}
		cfg = merged
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "root":
			cfg.Root = *root
		case "cache-ttl":
			cfg.CacheTTL = *ttl
		}
	})
	cfg.ConfigFile = *configFile

	return cfg, nil
}

func mergeFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	doc := yamlConfig{Listen: base.Listen, Root: base.Root, CacheTTL: base.CacheTTL.String()}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if doc.Listen != "" {
		base.Listen = doc.Listen
	}
	if doc.Root != "" {
		base.Root = doc.Root
	}
	if doc.CacheTTL != "" {
		ttl, err := time.ParseDuration(doc.CacheTTL)
		if err != nil {
			return Config{}, fmt.Errorf("parsing cache_ttl in %s: %w", path, err)
		}
		base.CacheTTL = ttl
	}

	return base, nil
}
