package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndlib/fedharvest/client"
	"github.com/ndlib/fedharvest/harvest"
	"github.com/ndlib/fedharvest/record"
	"github.com/ndlib/fedharvest/server"
)

var pidsCmd = &cobra.Command{
	Use:   "pids",
	Short: "List the PIDs in the object store",
	RunE: func(cmd *cobra.Command, args []string) error {
		objects, _, err := openStores()
		if err != nil {
			return err
		}
		pids, bad, err := harvest.ListPIDs(objects, cfg.Namespace)
		if err != nil {
			return err
		}
		for _, key := range bad {
			log.Println("Cannot decode object key", key)
		}
		for _, pid := range pids {
			fmt.Println(pid)
		}
		return nil
	},
}

var (
	flagRemote string
	flagToken  string
	flagDC     bool
)

var showCmd = &cobra.Command{
	Use:   "show pid",
	Short: "Print the stored record of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := args[0]
		if flagRemote != "" {
			return showRemote(pid)
		}
		records, err := openRecords()
		if err != nil {
			return err
		}
		defer records.Close()
		row, err := records.Get(pid)
		if err != nil {
			return err
		}
		if flagDC {
			fmt.Println(row.DublinCore)
			return nil
		}
		fmt.Printf("pid\t%s\nstate\t%s\n", row.PID, row.State)
		fmt.Printf("content_model\t%s\ncollection_pid\t%s\n", row.ContentModel, row.CollectionPID)
		fmt.Printf("page_of\t%s\nsequence\t%s\nconstituent_of\t%s\n", row.PageOf, row.Sequence, row.ConstituentOf)
		fmt.Printf("primary_file\t%s\nharvested\t%s\n", row.PrimaryFile, row.Harvested)
		for _, key := range row.Fields.Keys() {
			fmt.Printf("%s\t%s\n", key, record.Join(row.Fields.Values(key)))
		}
		return nil
	},
}

func showRemote(pid string) error {
	c := &client.Connection{HostURL: flagRemote, Token: flagToken}
	if flagDC {
		dc, err := c.DublinCore(pid)
		if err != nil {
			return err
		}
		fmt.Println(string(dc))
		return nil
	}
	v, err := c.Record(pid)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

var structureCmd = &cobra.Command{
	Use:   "structure [model...]",
	Short: "List the stored collection, book, and compound objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		models := args
		if len(models) == 0 {
			models = vocab.Containers
		}
		records, err := openRecords()
		if err != nil {
			return err
		}
		defer records.Close()
		rows, err := records.ListByModel(models...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Printf("%s\t%s\t%s\n", row.PID, row.ContentModel, row.CollectionPID)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stored records and the last report over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := openRecords()
		if err != nil {
			return err
		}
		defer records.Close()
		s := server.New(records, func() *harvest.Report {
			if cfg.Report == "" {
				return nil
			}
			report, err := readReport(cfg.Report)
			if err != nil {
				log.Println("report:", err)
				return nil
			}
			return report
		})
		s.PortNumber = cfg.StatusPort
		s.Containers = vocab.Containers
		if s.Validator, err = openValidator(); err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		go func() {
			<-ctx.Done()
			s.Stop()
		}()
		return s.Run()
	},
}

var remediationCmd = &cobra.Command{
	Use:   "remediation",
	Short: "Print the objects of the last report needing attention",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Report == "" {
			return fmt.Errorf("no report file given")
		}
		report, err := readReport(cfg.Report)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Remediation())
	},
}

func init() {
	showCmd.Flags().StringVar(&flagRemote, "remote", "", "read from the status server at this URL")
	showCmd.Flags().StringVar(&flagToken, "token", "", "API key for the status server")
	showCmd.Flags().BoolVar(&flagDC, "dc", false, "print the Dublin Core document")
	rootCmd.AddCommand(pidsCmd, showCmd, structureCmd, serveCmd, remediationCmd)
}
