package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/APerson241/pending-subs/internal/afc"
	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/render"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		tags   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the pipeline once and print the records",
		Long: `Fetch the statistics page, look up every submission's status and print
the result. Only records carrying every --tag are looked up.

Examples:
  pendingsubs fetch
  pendingsubs fetch --tag copyvio --tag nu
  pendingsubs fetch --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			required, err := afc.ParseRequired(tags)
			if err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			defer a.close()

			svc, err := a.pipeline(nil)
			if err != nil {
				return err
			}
			run, err := svc.Run(cmd.Context(), required)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			printRecords(out, run.Records)
			fmt.Fprintln(out, render.FilterStats(len(run.Records), len(run.Records)))
			if run.Malformed > 0 {
				fmt.Fprintf(out, "%d malformed rows skipped\n", run.Malformed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "require a tag (code or note name); repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	return cmd
}

func printRecords(w io.Writer, records []model.Record) {
	for _, rec := range records {
		line := statusLabel(rec.Status) + " " + rec.Title
		if names := afc.NoteNames(rec.Tags); len(names) > 0 {
			line += color.New(color.FgHiBlack).Sprintf(" [%s]", strings.Join(names, ", "))
		}
		fmt.Fprintln(w, line)
	}
}

func statusLabel(s model.Status) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case model.StatusPending:
		return color.New(color.FgYellow).Sprint(label)
	case model.StatusReviewed:
		return color.New(color.FgHiGreen).Sprint(label)
	default:
		return color.New(color.FgHiBlack).Sprint(label)
	}
}
