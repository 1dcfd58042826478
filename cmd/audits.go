package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/internal/store"
)

var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "Inspect audit history",
	Long:  "Commands for listing, viewing, and summarizing site audits.",
}

// -- audits list --

var auditsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "audit")
		if err != nil {
			return err
		}
		defer env.Close()

		status, _ := cmd.Flags().GetString("status")
		businessID, _ := cmd.Flags().GetString("business-id")
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.AuditFilter{
			Status:     model.AuditStatus(status),
			BusinessID: businessID,
			Domain:     domain,
			Limit:      limit,
		}

		audits, err := env.Store.ListAudits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "audits list")
		}

		if len(audits) == 0 {
			fmt.Fprintln(os.Stderr, "No audits found.")
			return nil
		}

		formatAuditsList(os.Stdout, audits)
		return nil
	},
}

// -- audits show --

var auditsShowCmd = &cobra.Command{
	Use:   "show <audit-id>",
	Short: "Show full details of an audit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "audit")
		if err != nil {
			return err
		}
		defer env.Close()

		audit, err := env.Store.GetAudit(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "audits show")
		}

		out := struct {
			*model.Audit
			Checkpoint json.RawMessage `json:"checkpoint,omitempty"`
		}{Audit: audit}

		// In-flight and failed audits keep their last checkpoint; surface
		// the partial progress alongside the record.
		if audit.Status != model.AuditStatusComplete {
			if cp, cpErr := env.Store.LoadCheckpoint(ctx, audit.ID); cpErr == nil && cp != nil {
				out.Checkpoint = cp.Data
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// -- audits stats --

var auditsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate audit statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "audit")
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.AuditFilter{Limit: 10000}
		audits, err := env.Store.ListAudits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "audits stats")
		}

		formatAuditStats(os.Stdout, computeAuditStats(audits))
		return nil
	},
}

func init() {
	auditsListCmd.Flags().String("status", "", "filter by status (pending, crawling, analyzing, complete, failed)")
	auditsListCmd.Flags().String("business-id", "", "filter by business identifier")
	auditsListCmd.Flags().String("domain", "", "filter by domain")
	auditsListCmd.Flags().Int("limit", 50, "max number of audits to display")

	auditsCmd.AddCommand(auditsListCmd)
	auditsCmd.AddCommand(auditsShowCmd)
	auditsCmd.AddCommand(auditsStatsCmd)
	rootCmd.AddCommand(auditsCmd)
}

// auditStats holds aggregate statistics computed from a set of audits.
type auditStats struct {
	Total      int
	Complete   int
	Failed     int
	InFlight   int
	AvgScore   float64
	TotalCost  float64
	AvgDurSecs float64
}

func computeAuditStats(audits []model.Audit) auditStats {
	var s auditStats
	s.Total = len(audits)

	var scoreSum int
	var totalDur time.Duration
	var durCount int

	for _, a := range audits {
		s.TotalCost += a.APICost
		switch {
		case a.Status == model.AuditStatusComplete:
			s.Complete++
			if a.Scores != nil {
				scoreSum += a.Scores.Overall
			}
			if a.CompletedAt != nil {
				totalDur += a.CompletedAt.Sub(a.StartedAt)
				durCount++
			}
		case a.Status == model.AuditStatusFailed:
			s.Failed++
		case a.Status.InFlight():
			s.InFlight++
		}
	}

	if s.Complete > 0 {
		s.AvgScore = float64(scoreSum) / float64(s.Complete)
	}
	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

func formatAuditsList(out io.Writer, audits []model.Audit) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDOMAIN\tSTATUS\tSCORE\tPAGES\tISSUES\tSTARTED")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-----\t-----\t------\t-------")

	for _, a := range audits {
		score := "-"
		if a.Scores != nil {
			score = fmt.Sprintf("%d", a.Scores.Overall)
		}

		domain := a.Domain
		if len(domain) > 30 {
			domain = domain[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(a.ID),
			domain,
			a.Status,
			score,
			a.PagesCount,
			a.IssuesCount,
			a.StartedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func formatAuditStats(out io.Writer, s auditStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total audits:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "In flight:\t%d\n", s.InFlight)
	if s.Complete > 0 {
		_, _ = fmt.Fprintf(w, "Avg score:\t%.1f\n", s.AvgScore)
	}
	_, _ = fmt.Fprintf(w, "API spend:\t$%.4f\n", s.TotalCost)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
