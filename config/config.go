// Package config reads the run configuration of a harvest from a TOML file.
package config

import (
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the run configuration.
type Config struct {
	// ObjectStore and DatastreamStore are the locations of the Fedora
	// object and datastream stores: a directory, "file:" followed by a
	// directory, or "s3://host/bucket/prefix".
	ObjectStore     string
	DatastreamStore string

	// DataDir, when set, is a Fedora data directory holding both stores
	// as its objectStore and datastreamStore subdirectories. It takes the
	// place of ObjectStore and DatastreamStore.
	DataDir string

	// Namespace limits a run to PIDs containing this string.
	Namespace string

	// Workers is the number of objects processed at once.
	Workers int

	// Report is the file the batch report is written to. Empty for none.
	Report string

	SentryDSN  string
	StatusPort string

	// TokenFile lists the API keys accepted by the status server, one
	// "<user> <role> <token>" line each. Empty means no keys are checked.
	TokenFile string

	Database Database
}

// Database says where harvested records are kept.
type Database struct {
	Driver string // "ql", "mysql", or "sqlite"
	Dial   string
	Table  string
}

// Default returns the configuration used for keys that are not set.
func Default() Config {
	return Config{
		ObjectStore:     "/usr/local/fedora/data/objectStore",
		DatastreamStore: "/usr/local/fedora/data/datastreamStore",
		Workers:         runtime.NumCPU(),
		Database: Database{
			Driver: "ql",
			Dial:   "memory",
			Table:  "records",
		},
	}
}

// Load reads the file at path over the defaults. An empty path gives the
// defaults. SENTRY_DSN in the environment is used when the file does not
// set SentryDSN.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config %s", path)
		}
	}
	if cfg.SentryDSN == "" {
		cfg.SentryDSN = os.Getenv("SENTRY_DSN")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "ql"
	}
	if cfg.Database.Dial == "" {
		cfg.Database.Dial = "memory"
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "records"
	}
	return cfg, nil
}
