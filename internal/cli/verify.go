package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/pipeline"
)

var (
	subjectName    string
	subjectAddress string
	listingURL     string
	otherDetails   string
	extraFields    map[string]string
	outJSON        string
	verifyTimeout  time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one landlord or listing",
	Long: `Verify searches the web for the landlord, judges every result,
reconciles the declared name with county owner records and prints the verdict JSON.

Example:
  veritas verify --name "Jane Doe" --address "123 Main St, San Francisco, CA"
  veritas verify --name "Jane Doe" --address "123 Main St" --extra listed_rent=1200 --extra payment_method=zelle
  veritas verify --name "Jane Doe" --address "123 Main St" --json verdict.json`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&subjectName, "name", "", "landlord name as declared in the listing")
	verifyCmd.Flags().StringVar(&subjectAddress, "address", "", "property address")
	verifyCmd.Flags().StringVar(&listingURL, "listing-url", "", "listing page URL")
	verifyCmd.Flags().StringVar(&otherDetails, "details", "", "other listing details")
	verifyCmd.Flags().StringToStringVar(&extraFields, "extra", nil, "extra attributes (listed_rent, phone, email, payment_method)")
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "write the verdict to this path instead of stdout")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 3*time.Minute, "overall verification timeout")
	_ = verifyCmd.MarkFlagRequired("name")
	_ = verifyCmd.MarkFlagRequired("address")

	bindProviderFlags(verifyCmd)
}

// bindProviderFlags adds the adapter selection flags shared by verify, batch and serve
func bindProviderFlags(cmd *cobra.Command) {
	def := model.DefaultConfig()
	cmd.Flags().String("llm-provider", def.LLM.Provider, "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().String("llm-model", def.LLM.Model, "LLM model name")
	cmd.Flags().String("scraper", def.Scrape.Provider, "scrape provider (firecrawl, direct)")
	cmd.Flags().String("registry", "", "static parcel registry YAML (switches records to the static adapters)")
	cmd.Flags().Bool("no-cache", false, "disable the provider cache")
	cmd.Flags().Bool("audit", def.Audit.Enabled, "write every run to the audit database")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for key, flag := range map[string]string{
			"llm.provider":    "llm-provider",
			"llm.model":       "llm-model",
			"scrape.provider": "scraper",
			"audit.enabled":   "audit",
		} {
			if f := cmd.Flags().Lookup(flag); f.Changed {
				if err := viper.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		if registry, _ := cmd.Flags().GetString("registry"); registry != "" {
			viper.Set("records.registry_file", registry)
			viper.Set("records.resolver", "static")
			viper.Set("records.lookup", "static")
		}
		if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
			viper.Set("cache.enabled", false)
		}
		return nil
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	subject := model.Subject{
		Name:         subjectName,
		Address:      subjectAddress,
		ListingURL:   listingURL,
		OtherDetails: otherDetails,
		Extra:        extraFields,
	}
	if err := subject.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s at %s\n", subject.Name, subject.Address)
		fmt.Fprintf(os.Stderr, "LLM: %s/%s  Scraper: %s  Records: %s/%s\n",
			cfg.LLM.Provider, cfg.LLM.Model, cfg.Scrape.Provider, cfg.Records.Resolver, cfg.Records.Lookup)
		fmt.Fprintln(os.Stderr)
	}

	verifier, cleanup, err := pipeline.FromConfig(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer cleanup()

	result, err := verifier.Verify(ctx, subject)
	if err != nil {
		var runErr *model.RunError
		if errors.As(err, &runErr) {
			_ = writeJSON(os.Stdout, runErr)
		}
		return fmt.Errorf("verification failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Analyzed %d search results (%d claims)\n", len(result.Hits), len(result.Claims))
		fmt.Fprintf(os.Stderr, "✓ Owner match: %v\n", result.Reconciliation.Matched)
		fmt.Fprintf(os.Stderr, "✓ Scam likelihood: %.2f (%s risk)\n", result.Verdict.ScamLikelihood, result.Verdict.RiskLevel())
		fmt.Fprintln(os.Stderr)
	}

	if outJSON == "" {
		return writeJSON(os.Stdout, result.Verdict)
	}
	if err := writeJSONFile(outJSON, result.Verdict); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote verdict: %s\n", outJSON)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return writeJSON(f, v)
}
