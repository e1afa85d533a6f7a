package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ads97/Veritas/internal/pipeline"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <subjects.yaml>",
	Short: "Verify many subjects from a YAML file in parallel",
	Long: `Batch verifies every subject listed in a YAML file and writes one
verdict JSON per subject.

File format:
  subjects:
    - name: Jane Doe
      address: 123 Main St, San Francisco, CA
      extra:
        listed_rent: "1200"

Example:
  veritas batch subjects.yaml
  veritas batch subjects.yaml --concurrency 4 --output-dir ./verdicts`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "subjects verified at the same time")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./veritas-verdicts", "output directory for verdicts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	bindProviderFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Veritas Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	subjects, err := pipeline.ReadSubjectsFile(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d subjects\n\n", len(subjects))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	verifier, cleanup, err := pipeline.FromConfig(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer cleanup()

	results, err := pipeline.NewBatchProcessor(verifier, concurrency).ProcessSubjects(ctx, subjects)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Batch interrupted: %v\n", err)
	}

	successCount := 0
	failureCount := len(subjects) - len(results)

	for _, result := range results {
		label := fmt.Sprintf("%s (%s)", result.Subject.Name, result.Subject.Address)
		path := filepath.Join(outputDir, fmt.Sprintf("%03d-%s.json", result.Index+1, slug(result.Subject.Name)))

		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", label, result.Error)
			continue
		}
		if err := writeJSONFile(path, result.Result.Verdict); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", label, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (likelihood: %.2f, %s risk)\n", label, result.Result.Verdict.ScamLikelihood, result.Result.Verdict.RiskLevel())
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d subjects\n", len(subjects))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a name into a file-name friendly string
func slug(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		return "subject"
	}
	return s
}
