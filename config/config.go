// Package config loads bio-vcf settings from a TOML file. Command-line flags
// override whatever the file sets.
//
// Example:
//
//	policy = "first"
//	gzip = true
//	sort_script = "/opt/varsim/src/sort_vcf.sh"
//	log_level = "debug"
//
//	[tools]
//	root = "/opt/varsim"
//	java = "java"
//
//	[compress]
//	level = 6
//	index_interval = 65536
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/varcombine/dedup"
	"github.com/grailbio/varcombine/encoding/vcfgz"
	"github.com/grailbio/varcombine/toolenv"
)

// Config holds the resolved settings.
type Config struct {
	Policy     dedup.Policy
	Gzip       bool
	SortScript string
	LogLevel   string
	// Root is the installation directory searched for bundled tools.
	Root  string
	Tools toolenv.Tools
	// Compressor settings.
	BGZF vcfgz.BGZF
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Policy:   dedup.KeepAll,
		Gzip:     true,
		LogLevel: "info",
	}
}

type fileConfig struct {
	Policy     string `toml:"policy"`
	Gzip       bool   `toml:"gzip"`
	SortScript string `toml:"sort_script"`
	LogLevel   string `toml:"log_level"`
	Tools      struct {
		Root   string `toml:"root"`
		Java   string `toml:"java"`
		Python string `toml:"python"`
		Jar    string `toml:"jar"`
	} `toml:"tools"`
	Compress struct {
		Level         int  `toml:"level"`
		IndexInterval int  `toml:"index_interval"`
		KeepInput     bool `toml:"keep_input"`
	} `toml:"compress"`
}

// Load reads path on top of Default(). An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.E(errors.Invalid, err, "load config", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.E(errors.Invalid, "load config", path, "unknown keys:", joinKeys(undecoded))
	}
	if meta.IsDefined("policy") {
		if cfg.Policy, err = dedup.ParsePolicy(strings.TrimSpace(raw.Policy)); err != nil {
			return Config{}, errors.E(err, "load config", path)
		}
	}
	if meta.IsDefined("gzip") {
		cfg.Gzip = raw.Gzip
	}
	if meta.IsDefined("sort_script") {
		cfg.SortScript = strings.TrimSpace(raw.SortScript)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	cfg.Root = strings.TrimSpace(raw.Tools.Root)
	cfg.Tools.Java = strings.TrimSpace(raw.Tools.Java)
	cfg.Tools.Python = strings.TrimSpace(raw.Tools.Python)
	cfg.Tools.Jar = strings.TrimSpace(raw.Tools.Jar)
	cfg.Tools.SortScript = cfg.SortScript
	cfg.BGZF = vcfgz.BGZF{
		Interval:  raw.Compress.IndexInterval,
		KeepInput: raw.Compress.KeepInput,
	}
	if meta.IsDefined("compress", "level") {
		level := raw.Compress.Level
		cfg.BGZF.Level = &level
	}
	return cfg, nil
}

func joinKeys(keys []toml.Key) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}
