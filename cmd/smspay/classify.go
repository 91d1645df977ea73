package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/engine"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/source"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a batch of exported messages",
		Long: `Run the full pipeline over a JSON or JSON-lines message export.

Each record is {"id", "address", "body", "timestamp"} with the timestamp in
epoch milliseconds. Accepted payments are written as JSON lines to stdout or
--output; newly learned formats are saved to the pattern database.

Examples:
  smspay classify --input messages.json
  smspay classify --input export.jsonl --max 500 --output payments.jsonl
  cat export.jsonl | smspay classify --input -`,
		RunE: runClassify,
	}

	cmd.Flags().StringP("input", "i", "", "message export to classify (- for stdin)")
	cmd.Flags().StringP("output", "o", "", "write results here instead of stdout")
	cmd.Flags().Int("max", 0, "classify at most this many messages (0 = all)")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	maxCount, _ := cmd.Flags().GetInt("max")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	msgs, err := source.NewFileSource(input).Messages(ctx)
	if err != nil {
		return err
	}
	slog.Info("Loaded messages", "count", len(msgs), "input", input)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	pipeline, _, err := buildPipeline(cfg, store)
	if err != nil {
		return err
	}
	defer pipeline.Wait()

	var progress func(stage string, done, total int)
	if !noProgress {
		progress = newStageProgress(cmd.ErrOrStderr())
	}

	results, summary, err := pipeline.ProcessBatch(ctx, msgs, maxCount, progress)
	if err != nil {
		slog.Warn("Classification interrupted, writing partial results", "error", err)
	}

	out := cmd.OutOrStdout()
	if output != "" {
		f, createErr := os.Create(output)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Error("Failed to close output file", "error", closeErr)
			}
		}()
		out = f
	}

	enc := json.NewEncoder(out)
	for _, r := range results {
		if encErr := enc.Encode(classifiedRecord{MessageID: r.Message.ID, Address: r.Message.SenderAddress, Result: r.Result}); encErr != nil {
			return fmt.Errorf("failed to write result: %w", encErr)
		}
	}

	printSummary(cmd.ErrOrStderr(), summary)
	return err
}

type classifiedRecord struct {
	MessageID string               `json:"message_id"`
	Address   string               `json:"address"`
	Result    model.AnalysisResult `json:"result"`
}

// newStageProgress renders pipeline progress as one bar per stage.
func newStageProgress(w io.Writer) func(stage string, done, total int) {
	var (
		bar     *progressbar.ProgressBar
		current string
	)
	return func(stage string, done, total int) {
		if stage != current || bar == nil {
			if bar != nil {
				_ = bar.Finish()
			}
			current = stage
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-18s[reset]", stage)),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(w)
				}),
			)
		}
		if err := bar.Set(done); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func printSummary(w io.Writer, s *engine.Summary) {
	if s == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "\nClassification complete\n"+
		"  • Messages:          %d\n"+
		"  • Filtered:          %d\n"+
		"  • Cache hits:        %d\n"+
		"  • Cache rejections:  %d\n"+
		"  • Clusters:          %d\n"+
		"  • LLM calls:         %d\n"+
		"  • Regex requests:    %d\n"+
		"  • Payments found:    %d\n"+
		"  • Patterns learned:  %d\n"+
		"  • Time taken:        %s\n",
		s.Total, s.Filtered, s.CacheHits, s.CacheRejected, s.Clusters,
		s.LLMCalls, s.RegexCalls, s.Accepted, s.PatternsInserted, s.Duration.Round(time.Millisecond))
}
