package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamed0406/apimonitor/internal/domain"
)

const defaultAPI = "http://localhost:8080"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var api string

	root := &cobra.Command{
		Use:          "apimon",
		Short:        "Client for the API monitoring service",
		SilenceUsage: true,
	}
	def := os.Getenv("API_BASE")
	if def == "" {
		def = defaultAPI
	}
	root.PersistentFlags().StringVar(&api, "api", def, "Base URL of the monitoring API (env API_BASE)")

	cl := func() *client { return newClient(api) }

	root.AddCommand(
		newCheckCmd(cl),
		newResultsCmd(cl),
		newGetCmd(cl),
		newStatsCmd(cl),
	)
	return root
}

func newCheckCmd(cl func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Probe a URL once and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(args[0])
			if !strings.Contains(target, "://") {
				target = "https://" + target
			}
			res, err := cl().Check(cmd.Context(), target)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newResultsCmd(cl func() *client) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List stored results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := cl().Results(cmd.Context(), o)
			if err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().IntVar(&o.Page, "page", domain.DefaultPage, "Page number (1-based)")
	cmd.Flags().IntVar(&o.PageSize, "page-size", domain.DefaultPageSize, "Results per page (1-100)")
	cmd.Flags().BoolVar(&o.Healthy, "healthy", false, "Only healthy results")
	cmd.Flags().BoolVar(&o.Unhealthy, "unhealthy", false, "Only unhealthy results")
	cmd.Flags().StringVar(&o.Search, "search", "", "Only results whose URL contains this text")
	cmd.MarkFlagsMutuallyExclusive("healthy", "unhealthy", "search")
	return cmd
}

func newGetCmd(cl func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.New("id must be an integer")
			}
			res, err := cl().Result(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newStatsCmd(cl func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cl().Stats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printResult(w io.Writer, r *domain.ProbeResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%d\n", r.ID)
	fmt.Fprintf(tw, "url\t%s\n", r.URL)
	fmt.Fprintf(tw, "healthy\t%t\n", r.IsHealthy)
	if r.StatusCode != nil {
		fmt.Fprintf(tw, "status\t%d\n", *r.StatusCode)
	}
	if r.ResponseTimeMS != nil {
		fmt.Fprintf(tw, "response_time_ms\t%.2f\n", *r.ResponseTimeMS)
	}
	if r.ErrorMessage != nil {
		fmt.Fprintf(tw, "error\t%s\n", *r.ErrorMessage)
	}
	fmt.Fprintf(tw, "created_at\t%s\n", r.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	tw.Flush()
}

func printPage(w io.Writer, p *domain.Page) {
	fmt.Fprintf(w, "page %d/%d (%d results)\n", p.Page, p.TotalPages, p.Total)
	if len(p.Results) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHEALTHY\tSTATUS\tMS\tURL")
	for _, r := range p.Results {
		status, ms := "-", "-"
		if r.StatusCode != nil {
			status = strconv.Itoa(*r.StatusCode)
		}
		if r.ResponseTimeMS != nil {
			ms = strconv.FormatFloat(*r.ResponseTimeMS, 'f', 2, 64)
		}
		fmt.Fprintf(tw, "%d\t%t\t%s\t%s\t%s\n", r.ID, r.IsHealthy, status, ms, r.URL)
	}
	tw.Flush()
}

func printStats(w io.Writer, s *domain.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "total_checks\t%d\n", s.TotalChecks)
	fmt.Fprintf(tw, "healthy\t%d\n", s.HealthyCount)
	fmt.Fprintf(tw, "unhealthy\t%d\n", s.UnhealthyCount)
	fmt.Fprintf(tw, "uptime\t%.2f%%\n", s.UptimePercentage)
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"avg_ms", s.AverageResponseTimeMS},
		{"fastest_ms", s.FastestResponseMS},
		{"slowest_ms", s.SlowestResponseMS},
	} {
		if f.v != nil {
			fmt.Fprintf(tw, "%s\t%.2f\n", f.name, *f.v)
		}
	}
	if s.MostMonitoredURL != nil {
		fmt.Fprintf(tw, "most_monitored\t%s\n", *s.MostMonitoredURL)
	}
	tw.Flush()
}
