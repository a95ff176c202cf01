package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/certgen/storage"
	bboltstorage "github.com/jmcleod/certgen/storage/bbolt"
)

func newLedgerCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the issuance ledger",
	}
	cmd.AddCommand(newLedgerListCmd(g))
	return cmd
}

func newLedgerListCmd(g *globals) *cobra.Command {
	var (
		path       string
		runID      string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list --ledger <file> [--run <id>]",
		Short: "List recorded runs, or the certificates of one run",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				return fmt.Errorf("%w: --ledger is required", errUsage)
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot open ledger: %w", err)
			}
			ledger, err := bboltstorage.NewLedgerFromFile(path, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
			if err != nil {
				return err
			}
			defer ledger.Close()

			out := cmd.OutOrStdout()
			if runID == "" {
				runs, err := ledger.Runs()
				if err != nil {
					return err
				}
				g.log.Debug().Int("runs", len(runs)).Msg("listed runs")
				if jsonOutput {
					return printJSON(out, runs)
				}
				return printRuns(out, ledger, runs)
			}

			recs, err := ledger.List(runID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, recs)
			}
			return printRecords(out, recs)
		},
	}
	cmd.Flags().StringVar(&path, "ledger", "", "bbolt ledger file (required)")
	cmd.Flags().StringVar(&runID, "run", "", "Only list certificates issued by this run")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func printRuns(w io.Writer, ledger storage.Ledger, runs []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCOMMON NAME\tISSUED\tCERTIFICATES")
	for _, id := range runs {
		recs, err := ledger.List(id)
		if err != nil {
			return err
		}
		var cn, issued string
		if len(recs) > 0 {
			cn = recs[0].CommonName
			issued = recs[0].IssuedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", id, cn, issued, len(recs))
	}
	return tw.Flush()
}

func printRecords(w io.Writer, recs []storage.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCA\tSERIAL\tNOT AFTER\tALGORITHM\tSUBJECT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\t%s\n",
			r.BaseName, r.Authority, r.SerialNumber, r.NotAfter.Format(time.RFC3339), r.KeyAlgorithm, r.Subject)
	}
	return tw.Flush()
}
