package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docdex"
)

func newInferCmd() *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "infer <file>",
		Short: "Show the schema ingestion would infer for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := docdex.Infer(cmd.Context(), args[0], sample)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE")
			for _, f := range fields {
				fmt.Fprintf(tw, "%s\t%s\n", f.Name, f.Type)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 0, "rows to sample (default 200)")
	return cmd
}

func newIngestCmd(g *globalFlags) *cobra.Command {
	var (
		collection string
		idField    string
		appendMode bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Load CSV, TSV, JSONL(.zst) or Parquet files into collections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if collection != "" && len(args) > 1 {
				return fmt.Errorf("--collection needs exactly one file")
			}
			client, err := g.open()
			if err != nil {
				return err
			}
			defer client.Close()

			files := make([]docdex.File, len(args))
			for i, p := range args {
				files[i] = docdex.File{Path: p, Collection: collection, IDField: idField}
			}
			job, err := client.Ingest(cmd.Context(), g.tenant, files, docdex.IngestOptions{Append: appendMode})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), job); err != nil {
				return err
			}
			if job.Status == docdex.JobError {
				return fmt.Errorf("ingestion failed")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&collection, "collection", "c", "", "collection label (default: derived from the file name)")
	f.StringVar(&idField, "id-field", "", "column holding document ids")
	f.BoolVar(&appendMode, "append", false, "keep existing collections instead of recreating them")
	return cmd
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	var (
		collections []string
		where       []string
		queryJSON   string
		sortBy      string
		fields      []string
		limit       int
		offset      int
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search one or more collections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.open()
			if err != nil {
				return err
			}
			defer client.Close()

			b := client.Search(g.tenant).In(collections...).Fields(fields...).Limit(limit).Offset(offset)
			if queryJSON != "" {
				var grp docdex.Group
				if err := json.Unmarshal([]byte(queryJSON), &grp); err != nil {
					return fmt.Errorf("--query: %w", err)
				}
				b.Condition(grp)
			}
			for _, w := range where {
				k, v, ok := strings.Cut(w, "=")
				if !ok {
					return fmt.Errorf("--where %q: want field=value", w)
				}
				b.Where(k, v)
			}
			if len(args) == 1 {
				b.Text(args[0])
			}
			if sortBy != "" {
				name, desc := strings.CutPrefix(sortBy, "-")
				b.SortBy(name, desc)
			}

			page, err := b.Do(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&collections, "collection", "c", nil, "collection labels to search")
	f.StringArrayVarP(&where, "where", "w", nil, "exact filter field=value (repeatable)")
	f.StringVarP(&queryJSON, "query", "q", "", `condition group as JSON, e.g. {"all":[{"field":"x","op":"gt","value":1}]}`)
	f.StringVarP(&sortBy, "sort", "s", "", "sort field, prefix with - for descending")
	f.StringSliceVar(&fields, "fields", nil, "fields to return")
	f.IntVarP(&limit, "limit", "n", 20, "page size")
	f.IntVar(&offset, "offset", 0, "hits to skip")
	return cmd
}

func newCollectionsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List ingested collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.open()
			if err != nil {
				return err
			}
			defer client.Close()

			cols, err := client.Collections(cmd.Context(), g.tenant)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tDOCS\tFIELDS\tCREATED")
			for _, c := range cols {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Label, c.DocCount, len(c.Fields), c.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "drop <label>",
		Short: "Drop a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.open()
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.DropCollection(cmd.Context(), g.tenant, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", args[0])
			return nil
		},
	})
	return cmd
}
