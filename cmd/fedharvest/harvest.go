package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ndlib/fedharvest/harvest"
	"github.com/ndlib/fedharvest/server"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [pid...]",
	Short: "Harvest the given objects, or every object in the namespace",
	Long: `Harvest the given objects, or every object in the namespace.

If a status port is set, /report shows the progress of the run. The status
server stops when the run ends; use "serve" with a report file to look at
the finished report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Println("==========")
		log.Printf("Starting fedharvest version %s", Version)
		if cfg.DataDir != "" {
			log.Printf("DataDir = %s", cfg.DataDir)
		} else {
			log.Printf("ObjectStore = %s", cfg.ObjectStore)
			log.Printf("DatastreamStore = %s", cfg.DatastreamStore)
		}
		log.Printf("Namespace = %q", cfg.Namespace)
		log.Printf("Workers = %d", cfg.Workers)

		objects, datastreams, err := openStores()
		if err != nil {
			return err
		}
		records, err := openRecords()
		if err != nil {
			return err
		}
		defer records.Close()

		pids := args
		if len(pids) == 0 {
			var bad []string
			pids, bad, err = harvest.ListPIDs(objects, cfg.Namespace)
			if err != nil {
				return errors.Wrap(err, "listing objects")
			}
			for _, key := range bad {
				log.Println("Cannot decode object key", key)
			}
			log.Printf("Found %d objects", len(pids))
		}

		h := harvest.New(harvest.Options{
			Objects:     objects,
			Datastreams: datastreams,
			Records:     records,
			Vocabulary:  vocab,
			Workers:     cfg.Workers,
		})

		var (
			m    sync.Mutex
			last *harvest.Report
		)
		if cfg.StatusPort != "" {
			// while the run goes on /report shows its progress
			s := server.New(records, func() *harvest.Report {
				m.Lock()
				defer m.Unlock()
				if last != nil {
					return last
				}
				return h.Progress()
			})
			s.PortNumber = cfg.StatusPort
			s.Containers = vocab.Containers
			if s.Validator, err = openValidator(); err != nil {
				return err
			}
			go func() {
				if err := s.Run(); err != nil {
					raven.CaptureError(err, nil)
				}
			}()
			defer s.Stop()
		}

		ctx, cancel := signalContext()
		defer cancel()
		report := h.Run(ctx, pids)
		m.Lock()
		last = report
		m.Unlock()

		if cfg.Report != "" {
			if err := writeReport(cfg.Report, report); err != nil {
				return err
			}
			log.Println("Report written to", cfg.Report)
		}
		for _, r := range report.Remediation() {
			log.Printf("%s %s %v", r.PID, r.Status, r.Diagnostics)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(harvestCmd)
}

// signalContext returns a context canceled by SIGINT or SIGTERM, so a run
// stops starting new objects and still writes its report.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sig:
			log.Println("Received signal", s)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()
	return ctx, cancel
}

func writeReport(fname string, report *harvest.Report) error {
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "report")
	}
	if err := report.WriteJSON(f); err != nil {
		f.Close()
		return errors.Wrap(err, "report")
	}
	return f.Close()
}

func readReport(fname string) (*harvest.Report, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return harvest.ReadReport(f)
}
