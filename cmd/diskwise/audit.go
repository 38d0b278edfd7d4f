package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diskwise-ai/diskwise/pkg/audit"
	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

func newAuditCmd() *cobra.Command {
	var (
		configPath string
		session    string
		action     string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the recommendation audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			trail, err := audit.Open(cfg.Audit)
			if err != nil {
				return err
			}
			defer func() { _ = trail.Close() }()

			opts := models.AuditQueryOpts{
				SessionID: session,
				Action:    action,
				Limit:     limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			records, err := trail.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditRecords(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to diskwise config file")
	cmd.Flags().StringVar(&session, "session", "", "filter by session ID")
	cmd.Flags().StringVar(&action, "action", "", "filter by action (recommended, trashed, kept)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max records to return")
	return cmd
}

func formatAuditRecords(records []models.AuditRecord) string {
	if len(records) == 0 {
		return "No audit records found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-12s %-12s %-6s %-10s %s\n",
		"TIME", "ACTION", "RECOMMEND", "CONF", "RISK", "PATH")
	b.WriteString(strings.Repeat("-", 100) + "\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%-20s %-12s %-12s %5.2f %-10s %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Action, r.Recommendation, r.Confidence, r.RiskLevel, r.Path)
	}
	return b.String()
}
