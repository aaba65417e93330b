package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-splice/internal/duckdb"
	"github.com/inodb/vibe-splice/internal/event"
)

func newQueryCmd() *cobra.Command {
	var (
		listRuns bool
		counts   bool
		clearAll bool
		runID    string
	)

	cmd := &cobra.Command{
		Use:   "query [gene]",
		Short: "Query events stored in a DuckDB database",
		Long: `Print stored events for a gene (matched by gene id or gene name), list the
recorded classification runs, count events per type, or clear the database.`,
		Example: `  vibe-splice query --db events.duckdb KRAS
  vibe-splice query --db events.duckdb --runs
  vibe-splice query --db events.duckdb --counts --run 6f1c...
  vibe-splice query --db events.duckdb --clear`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := configValue(cmd, "db", "db.path")
			if dbPath == "" {
				return usageErrorf("no database given: pass --db or set db.path")
			}
			if !fileExists(dbPath) {
				return fmt.Errorf("database %s does not exist", dbPath)
			}
			if len(args) == 0 && !listRuns && !counts && !clearAll {
				return usageErrorf("a gene, --runs, --counts or --clear is required")
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			w := bufio.NewWriter(cmd.OutOrStdout())
			switch {
			case clearAll:
				if err = store.ClearEvents(); err == nil {
					fmt.Fprintln(w, "cleared all runs and events")
				}
			case listRuns:
				err = printRuns(w, store)
			case counts:
				err = printCounts(w, store, runID)
			default:
				err = printGeneEvents(w, store, args[0])
			}
			if err != nil {
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("db", "", "DuckDB database (default: db.path from config)")
	cmd.Flags().BoolVar(&listRuns, "runs", false, "List recorded runs")
	cmd.Flags().BoolVar(&counts, "counts", false, "Count events per type")
	cmd.Flags().StringVar(&runID, "run", "", "Restrict --counts to one run")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete every stored run and event")

	return cmd
}

func printRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "run_id\tstarted_at\tsource")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"), r.Source)
	}
	return nil
}

func printCounts(w io.Writer, store *duckdb.Store, runID string) error {
	counts, err := store.CountByType(runID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "type\tevents")
	for _, t := range event.Types {
		fmt.Fprintf(w, "%s\t%d\n", t, counts[t])
	}
	return nil
}

// printGeneEvents writes one table section per event type, each with its
// own header, prefixed by the run id.
func printGeneEvents(w io.Writer, store *duckdb.Store, gene string) error {
	events, err := store.EventsByGene(gene)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no events stored for gene %s", gene)
	}

	byType := make(map[event.Type][]duckdb.StoredEvent)
	for _, e := range events {
		byType[e.Record.Type] = append(byType[e.Record.Type], e)
	}

	first := true
	for _, t := range event.Types {
		rows := byType[t]
		if len(rows) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false

		fmt.Fprintf(w, "# %s\n", t)
		fmt.Fprintln(w, "run_id\t"+strings.Join(event.Columns(t), "\t"))
		for _, e := range rows {
			fmt.Fprintln(w, e.RunID+"\t"+strings.Join(e.Record.Fields(), "\t"))
		}
	}
	return nil
}
