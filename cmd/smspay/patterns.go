package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/config"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and maintain learned message patterns",
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsPruneCmd())
	cmd.AddCommand(patternsBackupCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			nonPayment, _ := cmd.Flags().GetBool("non-payment")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			var patterns []model.Pattern
			if nonPayment {
				patterns, err = store.GetAllNonPaymentPatterns(ctx)
			} else {
				patterns, err = store.GetAllPaymentPatterns(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			return writePatternTable(cmd.OutOrStdout(), patterns)
		},
	}

	cmd.Flags().Bool("non-payment", false, "list learned non-payment formats instead")
	return cmd
}

func writePatternTable(w io.Writer, patterns []model.Pattern) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSENDER\tSOURCE\tCONF\tMATCHES\tLAST MATCHED\tSTORE\tTEMPLATE")
	for _, p := range patterns {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d\t%s\t%s\t%s\n",
			p.ID, p.SenderAddress, p.ParseSource, p.Confidence, p.MatchCount,
			p.LastMatchedAt.Format("2006-01-02"), p.ParsedStore, oneLine(p.Template, 60))
	}
	return tw.Flush()
}

func oneLine(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ⏎ ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}

func patternsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stale patterns",
		Long: `Delete patterns that were matched fewer than --min-matches times and
have not been matched within --older-than.

Examples:
  smspay patterns prune                      # fewer than 2 matches, idle for 90 days
  smspay patterns prune --min-matches 5 --older-than 720h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			minMatches, _ := cmd.Flags().GetInt("min-matches")
			olderThan, _ := cmd.Flags().GetDuration("older-than")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			cutoff := time.Now().Add(-olderThan)
			deleted, err := store.DeleteStalePatterns(ctx, minMatches, cutoff)
			if err != nil {
				return fmt.Errorf("failed to prune patterns: %w", err)
			}

			slog.Info("Pruned stale patterns", "deleted", deleted, "min_matches", minMatches, "cutoff", cutoff.Format(time.RFC3339))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d stale patterns\n", deleted)
			return nil
		},
	}

	cmd.Flags().Int("min-matches", 2, "patterns with fewer matches than this are candidates")
	cmd.Flags().Duration("older-than", 90*24*time.Hour, "only delete patterns idle for at least this long")
	return cmd
}

func patternsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [path]",
		Short: "Write a consistent snapshot of the pattern database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dest := ""
			if len(args) == 1 {
				dest = config.ExpandPath(args[0])
			} else {
				name := fmt.Sprintf("patterns-%s.db", time.Now().Format("20060102-150405"))
				dest = filepath.Join(filepath.Dir(cfg.Database.Path), "backups", name)
			}
			if !filepath.IsAbs(dest) {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to resolve backup path: %w", err)
				}
				dest = filepath.Join(wd, dest)
			}
			dest = filepath.Clean(dest)

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			info, err := store.Snapshot(ctx, dest)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%d payment, %d non-payment patterns, %d bytes)\n",
				info.Path, info.Counts.Payment, info.Counts.NonPayment, info.FileSize)
			return nil
		},
	}
	return cmd
}
