package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diskwise-ai/diskwise/pkg/analyzer"
	"github.com/diskwise-ai/diskwise/pkg/audit"
	"github.com/diskwise-ai/diskwise/pkg/cache"
	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
	"github.com/diskwise-ai/diskwise/pkg/safety"
	"github.com/diskwise-ai/diskwise/pkg/scanner"
	"github.com/diskwise-ai/diskwise/pkg/trash"
)

func newScanCmd() *cobra.Command {
	var (
		configPath    string
		apply         bool
		yes           bool
		includeHidden bool
		maxFiles      int
	)

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Analyze a directory and recommend files to clean up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			if includeHidden {
				cfg.Scan.IncludeHidden = true
			}
			if maxFiles > 0 {
				cfg.Scan.MaxFiles = maxFiles
			}

			mgr, err := cache.New(cfg.Cache)
			if err != nil {
				return err
			}
			defer func() { _ = mgr.Close() }()

			var trail *audit.Trail
			if cfg.Audit.Enabled {
				trail, err = audit.Open(cfg.Audit)
				if err != nil {
					log.Warn().Err(err).Msg("audit trail unavailable, continuing without it")
				} else {
					defer func() { _ = trail.Close() }()
				}
			}

			ctx := cmd.Context()
			files, err := scanner.New(cfg.Scan).Scan(ctx, args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No files found.")
				return nil
			}
			fmt.Printf("Scanned %d files under %s\n\n", len(files), args[0])

			guard := safety.New(cfg.Safety)
			res, err := analyzer.New(cfg.LLM, mgr, guard).Analyze(ctx, files)
			if err != nil {
				return err
			}

			session := audit.NewSessionID()
			if err := trail.RecordAnalysis(ctx, session, res, cfg.LLM.Model); err != nil {
				log.Warn().Err(err).Msg("failed to record analysis in audit trail")
			}

			printRecommendations(res)

			if !apply {
				fmt.Println("\nDry run: nothing was moved. Re-run with --apply to trash deletions.")
				return nil
			}
			return applyDeletions(ctx, res, cfg, trail, session, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to diskwise config file")
	cmd.Flags().BoolVar(&apply, "apply", false, "move approved deletions to trash")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "include hidden files")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "limit the number of scanned files")
	return cmd
}

func printRecommendations(res *models.AnalysisResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECOMMENDATION\tCONFIDENCE\tRISK\tCATEGORY\tPATH")
	for _, rec := range res.Recommendations {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n",
			strings.ToUpper(rec.Recommendation), rec.Confidence, rec.RiskLevel, rec.Category, rec.Path)
	}
	w.Flush()

	fmt.Printf("\nMode: %s", res.Mode)
	if res.ErrorKind != "" {
		fmt.Printf(" (degraded: %s)", res.ErrorKind)
	}
	fmt.Printf("\nDelete: %d  Keep: %d  Review: %d  Reclaimable: %s\n",
		res.Summary.Delete, res.Summary.Keep, res.Summary.Review, formatBytes(res.Summary.BytesReclaimable))
}

func applyDeletions(ctx context.Context, res *models.AnalysisResult, cfg *config.Config, trail *audit.Trail, session string, yes bool) error {
	var victims []models.FileRecommendation
	for _, rec := range res.Recommendations {
		if rec.Recommendation == models.RecommendDelete && rec.Confidence >= cfg.Safety.MinConfidence {
			victims = append(victims, rec)
		}
	}
	if len(victims) == 0 {
		fmt.Println("\nNo deletions meet the confidence threshold.")
		return nil
	}

	if !yes {
		fmt.Printf("\nMove %d files to trash? [y/N] ", len(victims))
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	bin, err := trash.New()
	if err != nil {
		return err
	}

	moved := 0
	for _, rec := range victims {
		if _, err := bin.Move(rec.Path); err != nil {
			log.Warn().Err(err).Str("path", rec.Path).Msg("could not trash file")
			continue
		}
		moved++
		if err := trail.RecordAction(ctx, session, rec.Path, "trashed"); err != nil {
			log.Warn().Err(err).Msg("failed to record action in audit trail")
		}
	}
	fmt.Printf("Moved %d of %d files to %s\n", moved, len(victims), bin.Dir())
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
