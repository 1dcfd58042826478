package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
)

var (
	auditDomain     string
	auditBusinessID string
	auditMaxPages   int
	auditLocations  []string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a full site audit for a single domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "audit")
		if err != nil {
			return err
		}
		defer env.Close()

		tracked, err := parseLocations(auditLocations)
		if err != nil {
			return err
		}

		req := model.AuditRequest{
			BusinessID: auditBusinessID,
			Domain:     normalizeDomain(auditDomain),
			MaxPages:   auditMaxPages,
			Tracked:    tracked,
		}

		audit, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "audit run")
		}

		zap.L().Info("audit complete",
			zap.String("audit_id", audit.ID),
			zap.Int("overall", audit.Scores.Overall),
			zap.Int("pages", audit.PagesCount),
			zap.Int("issues", audit.IssuesCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(audit)
	},
}

// normalizeDomain strips the scheme and any path so the provider receives a
// bare hostname.
func normalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return strings.TrimPrefix(d, "www.")
}

// parseLocations parses repeated --location values of the form "City,ST" or
// "City,ST,Country".
func parseLocations(raw []string) ([]model.TrackedLocation, error) {
	var out []model.TrackedLocation
	for _, loc := range raw {
		parts := strings.Split(loc, ",")
		if len(parts) < 2 {
			return nil, eris.Errorf("invalid --location %q, expected City,ST[,Country]", loc)
		}
		tl := model.TrackedLocation{
			City:  strings.TrimSpace(parts[0]),
			State: strings.TrimSpace(parts[1]),
		}
		if len(parts) > 2 {
			tl.Country = strings.TrimSpace(strings.Join(parts[2:], ","))
		}
		out = append(out, tl)
	}
	return out, nil
}

func init() {
	auditCmd.Flags().StringVar(&auditDomain, "domain", "", "domain to audit (required)")
	auditCmd.Flags().StringVar(&auditBusinessID, "business-id", "", "owning business identifier")
	auditCmd.Flags().IntVar(&auditMaxPages, "max-pages", 0, "crawl page budget (default from config)")
	auditCmd.Flags().StringArrayVar(&auditLocations, "location", nil, "tracked market as City,ST (repeatable)")
	_ = auditCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(auditCmd)
}
