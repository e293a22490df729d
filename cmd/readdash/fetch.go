package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eringen/readdash"
	"github.com/eringen/readdash/dashboard"
	"github.com/eringen/readdash/views"
)

var (
	fetchURL    string
	fetchNoSave bool
	fetchJSON   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch statistics once and print them",
	Long: `Fetch statistics once and print them.

Without --url the persisted API URL is used. With --url the URL is saved
first, as submitting it in the dashboard would, unless --no-save is given.
Exits non-zero when the fetch ends in an error.

Examples:
  readdash fetch
  readdash fetch --url https://stats.example.com
  readdash fetch --url https://stats.example.com --no-save --json`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "statistics API base URL")
	fetchCmd.Flags().BoolVar(&fetchNoSave, "no-save", false, "do not persist --url")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the state as JSON")
	fetchCmd.Flags().Duration("timeout", 0, "request timeout (default from config)")
	cobra.CheckErr(v.BindPFlag("fetch.timeout", fetchCmd.Flags().Lookup("timeout")))
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var store dashboard.ConfigStore
	if fetchNoSave {
		store = dashboard.NewMemoryStore("")
	} else {
		s, err := readdash.NewStore(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open settings: %w", err)
		}
		defer s.Close()
		store = s
	}

	client := dashboard.NewClient(
		dashboard.WithTimeout(cfg.Fetch.Timeout),
		dashboard.WithUserAgent(cfg.Fetch.UserAgent),
	)
	ctl := dashboard.NewController(store, client, dashboard.WithLogger(logger.Named("dashboard")))
	defer ctl.Close()

	var (
		pending *dashboard.Pending
		err     error
	)
	if fetchURL != "" {
		pending, err = ctl.SubmitURL(ctx, fetchURL)
	} else {
		pending, err = ctl.Initialize(ctx)
	}
	if err != nil {
		return err
	}
	if pending == nil {
		return errors.New("no API URL configured; pass --url or run 'readdash config set-url <url>'")
	}
	if err := pending.Wait(ctx); err != nil {
		return err
	}

	st := ctl.State()
	out := cmd.OutOrStdout()
	if fetchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			return err
		}
	} else {
		printState(out, st)
	}
	if st.Kind == dashboard.KindError {
		return fmt.Errorf("fetch failed: %s", st.Message)
	}
	return nil
}

func printState(w io.Writer, st dashboard.ViewState) {
	snap, ok := st.Snapshot()
	if !ok {
		switch st.Kind {
		case dashboard.KindEmpty:
			fmt.Fprintln(w, "No data available")
		case dashboard.KindError:
			fmt.Fprintf(w, "Error: %s\n", st.Message)
		default:
			fmt.Fprintln(w, st.Kind)
		}
		return
	}

	view := dashboard.Derive(snap)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range views.SummaryCards(view.Summary) {
		fmt.Fprintf(tw, "%s\t%s\n", c.Label, c.Value)
	}
	for _, c := range views.MetricCards(view.Summary) {
		fmt.Fprintf(tw, "%s\t%s\n", c.Label, c.Value)
	}
	for _, u := range view.SampleUsage {
		fmt.Fprintf(tw, "Sample %s\t%d\n", u.Category, u.Count)
	}
	tw.Flush()

	if view.Daily.Len() == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPAGE VIEWS\tANALYSES")
	for i, label := range view.Daily.Labels {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", label, view.Daily.PageViews[i], view.Daily.Analyses[i])
	}
	tw.Flush()
}
