package main

import (
	"log"

	raven "github.com/getsentry/raven-go"
	"github.com/spf13/cobra"

	"github.com/ndlib/fedharvest/config"
	"github.com/ndlib/fedharvest/recordstore"
	"github.com/ndlib/fedharvest/server"
	"github.com/ndlib/fedharvest/store"
	"github.com/ndlib/fedharvest/vocabulary"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	cfgFile string
	cfg     config.Config
	vocab   *vocabulary.Vocabulary

	// flag values that override the configuration file when given
	flagObjects     string
	flagDatastreams string
	flagDataDir     string
	flagNamespace   string
	flagWorkers     int
	flagReport      string
	flagPort        string
	flagDriver      string
	flagDial        string
	flagTable       string
)

var rootCmd = &cobra.Command{
	Use:           "fedharvest",
	Short:         "Extract and normalize metadata from a Fedora 3 repository",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlags(cmd)
		if cfg.SentryDSN != "" {
			raven.SetDSN(cfg.SentryDSN)
			raven.SetRelease(Version)
		}
		vocab, err = vocabulary.Load()
		if err != nil {
			log.Fatalln("vocabulary:", err)
		}
		server.Version = Version
		return nil
	},
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "TOML configuration file")
	pf.StringVar(&flagObjects, "objects", "", "location of the Fedora object store")
	pf.StringVar(&flagDatastreams, "datastreams", "", "location of the Fedora datastream store")
	pf.StringVar(&flagDataDir, "data-dir", "", "location of a Fedora data directory holding both stores")
	pf.StringVar(&flagNamespace, "namespace", "", "only PIDs containing this string")
	pf.IntVar(&flagWorkers, "workers", 0, "objects to process at once")
	pf.StringVar(&flagReport, "report", "", "file for the batch report")
	pf.StringVar(&flagPort, "port", "", "port for the status server")
	pf.StringVar(&flagDriver, "db-driver", "", "record database driver: ql, mysql, or sqlite")
	pf.StringVar(&flagDial, "db", "", "record database file, \"memory\", or MySQL DSN")
	pf.StringVar(&flagTable, "table", "", "record table name")
}

// applyFlags copies the flags given on the command line over cfg.
func applyFlags(cmd *cobra.Command) {
	pf := cmd.Flags()
	var overrides = []struct {
		name   string
		target *string
		value  string
	}{
		{"objects", &cfg.ObjectStore, flagObjects},
		{"datastreams", &cfg.DatastreamStore, flagDatastreams},
		{"data-dir", &cfg.DataDir, flagDataDir},
		{"namespace", &cfg.Namespace, flagNamespace},
		{"report", &cfg.Report, flagReport},
		{"port", &cfg.StatusPort, flagPort},
		{"db-driver", &cfg.Database.Driver, flagDriver},
		{"db", &cfg.Database.Dial, flagDial},
		{"table", &cfg.Database.Table, flagTable},
	}
	for _, o := range overrides {
		if pf.Changed(o.name) {
			*o.target = o.value
		}
	}
	if pf.Changed("workers") && flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
}

// openStores opens the object and datastream stores, either as the two
// halves of DataDir or from their own locations.
func openStores() (objects, datastreams store.Store, err error) {
	if cfg.DataDir != "" {
		base, err := parselocation(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store.NewWithPrefix(base, "objectStore/"),
			store.NewWithPrefix(base, "datastreamStore/"),
			nil
	}
	objects, err = parselocation(cfg.ObjectStore)
	if err != nil {
		return nil, nil, err
	}
	datastreams, err = parselocation(cfg.DatastreamStore)
	return objects, datastreams, err
}

func openRecords() (recordstore.Store, error) {
	db := cfg.Database
	log.Printf("Using %s record database %s table %s", db.Driver, dialName(db), db.Table)
	return recordstore.Open(db.Driver, db.Dial, db.Table)
}

// dialName hides the MySQL DSN, which may hold a password.
func dialName(db config.Database) string {
	if db.Driver == "mysql" {
		return "(dsn)"
	}
	return db.Dial
}

func openValidator() (server.TokenDecoder, error) {
	if cfg.TokenFile == "" {
		log.Println("No token file given")
		return server.NewNobodyDecoder(), nil
	}
	return server.NewListDecoderFile(cfg.TokenFile)
}
