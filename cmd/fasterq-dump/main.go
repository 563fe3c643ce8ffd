package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glarue/fasterq-dump/internal/accession"
	"github.com/glarue/fasterq-dump/internal/acquire"
	"github.com/glarue/fasterq-dump/internal/config"
	"github.com/glarue/fasterq-dump/internal/pipeline"
	"github.com/glarue/fasterq-dump/internal/run"
	"github.com/spf13/cobra"
)

// Version info
var (
	version = "2.0.0"
	commit  = "dev"
	date    = "unknown"
)

// Global flags
var (
	noColor bool
	quiet   bool
	debug   bool
	yes     bool
)

// Batch flags
var (
	flagFile        string
	flagKeep        bool
	flagTrinity     bool
	flagAcquireOnly bool
	flagOverwrite   bool
	flagManual      bool
	flagUtilities   string
	flagLog         bool
	flagStrict      bool
	flagAspera      bool
	flagConfig      string
)

var rootCmd = &cobra.Command{
	Use:   "fasterq-dump [flags] [accession ...] [-- converter args...]",
	Short: "Batch retrieval and FASTQ conversion of SRA runs",
	Long: `fasterq-dump retrieves raw .sra files for a batch of run accessions
and converts them to FASTQ with the external fastq-dump utility,
auto-detecting single- vs paired-end layout per run.

Accessions may be literals (SRR123456), comma lists, or hyphenated
ranges (SRR000001-SRR000100); range members keep the zero padding of
the range start. Arguments after "--" are handed to fastq-dump
verbatim. Runs whose raw file or FASTQ output already exists are
skipped, so interrupted batches can simply be re-invoked.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Example: `  # Convert three runs
  fasterq-dump SRR3157345 SRR3157346 SRR3157347

  # A range, keeping the raw files
  fasterq-dump --keep-raw-files SRR000001-SRR000010

  # Fetch only, no conversion
  fasterq-dump --acquire-only SRR3157345

  # Extra converter flags after the dash
  fasterq-dump SRR3157345 -- --gzip --skip-technical`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "Assume yes to all prompts (non-interactive mode)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")

	rootCmd.Flags().StringVarP(&flagFile, "file", "f", "", "Read accessions from a file, one per line")
	rootCmd.Flags().BoolVarP(&flagKeep, "keep-raw-files", "k", false, "Retain .sra files after conversion")
	rootCmd.Flags().BoolVarP(&flagTrinity, "trinity-compatible-ids", "t", false, "Annotate paired-read IDs the way Trinity expects")
	rootCmd.Flags().BoolVar(&flagAcquireOnly, "acquire-only", false, "Fetch raw data without converting (implies keep)")
	rootCmd.Flags().BoolVarP(&flagOverwrite, "overwrite", "w", false, "Re-acquire and re-convert even if local files exist")
	rootCmd.Flags().BoolVarP(&flagManual, "manual", "m", false, "Disable read-type auto-detection; supply split flags after --")
	rootCmd.Flags().StringVarP(&flagUtilities, "utilities", "u", "all", "Acquisition method (all|curl|wget|prefetch|http)")
	rootCmd.Flags().BoolVarP(&flagLog, "log", "l", false, "Append per-accession success/fail lines to the log file")
	rootCmd.Flags().BoolVar(&flagStrict, "strict", false, "Treat a non-zero converter exit as failure")
	rootCmd.Flags().BoolVar(&flagAspera, "aspera", false, "Try ascp before curl/wget for direct transfers")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Config file path (default: auto-detect)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	applyConfigDefaults(cmd, cfg)

	// Everything after "--" goes to the converter untouched.
	tokens := args
	var passThrough []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		tokens = args[:dash]
		passThrough = args[dash:]
	}

	if flagFile != "" {
		fileTokens, err := readAccessionFile(flagFile)
		if err != nil {
			return fmt.Errorf("failed to read accession file: %w", err)
		}
		tokens = append(tokens, fileTokens...)
	}

	if len(tokens) == 0 {
		if stat, _ := os.Stdin.Stat(); stat != nil && stat.Mode()&os.ModeCharDevice == 0 {
			stdinTokens, err := readAccessionsFromReader(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read from stdin: %w", err)
			}
			tokens = stdinTokens
		}
	}

	accessions, err := accession.Expand(tokens)
	if err != nil {
		return err
	}
	if len(accessions) == 0 {
		return errors.New("no accessions provided")
	}
	printDebug("resolved %d accession(s)", len(accessions))

	for _, acc := range accessions {
		if !accession.IsRunAccession(acc) {
			printWarning("%s does not look like a run accession", acc)
		}
	}

	strategy, err := acquire.ParseStrategy(flagUtilities)
	if err != nil {
		return err
	}

	logFile := ""
	if flagLog {
		logFile = cfg.LogFile
	}

	opts := pipeline.Options{
		KeepRawFiles: flagKeep,
		TrinityIDs:   flagTrinity,
		AcquireOnly:  flagAcquireOnly,
		Overwrite:    flagOverwrite,
		Manual:       flagManual,
		Strict:       flagStrict,
		AssumeYes:    yes,
		Quiet:        quiet,
		LogFile:      logFile,
		PassThrough:  passThrough,
		Acquire: acquire.Options{
			Strategy:  strategy,
			UseAspera: flagAspera,
			MaxSizeKB: cfg.PrefetchMaxSizeKB,
		},
		ConfirmAbove: cfg.ConfirmAbove,
		SettlePause:  time.Duration(cfg.SettleSeconds) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		printWarning("interrupted, stopping")
		cancel()
	}()

	batch := pipeline.New(opts, run.ExecRunner{})
	if err := batch.Run(ctx, accessions); err != nil {
		return err
	}

	printSuccess("finished %d accession(s)", len(accessions))
	return nil
}

// applyConfigDefaults lets the config file set defaults for flags the
// user did not pass explicitly.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("utilities") && cfg.Utilities != "" {
		flagUtilities = cfg.Utilities
	}
	if !cmd.Flags().Changed("keep-raw-files") {
		flagKeep = cfg.KeepRawFiles
	}
	if !cmd.Flags().Changed("trinity-compatible-ids") {
		flagTrinity = cfg.TrinityIDs
	}
	if !cmd.Flags().Changed("aspera") {
		flagAspera = cfg.Aspera
	}
	if !cmd.Flags().Changed("strict") {
		flagStrict = cfg.Strict
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
