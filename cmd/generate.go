package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/abhisek/findata/internal/chunker"
	"github.com/abhisek/findata/internal/config"
	"github.com/abhisek/findata/internal/dataset"
	"github.com/abhisek/findata/internal/generator"
	"github.com/abhisek/findata/internal/llm"
	"github.com/abhisek/findata/internal/source"
	"github.com/abhisek/findata/internal/store"
	"github.com/abhisek/findata/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a dataset from text, a PDF or an SEC filing",
}

var generateTextCmd = &cobra.Command{
	Use:   "text [files...|-]",
	Short: "Generate from plain text files, or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		texts, err := readTexts(cmd, args)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("text (%d inputs)", len(texts))
		return runGeneration(cmd, title, false, func(ctx context.Context, p *generator.Pipeline, maxItems int) (*dataset.Dataset, error) {
			return p.FromTexts(ctx, texts, maxItems)
		})
	},
}

var generatePDFCmd = &cobra.Command{
	Use:   "pdf <path|url|s3://bucket/key>",
	Short: "Generate from a PDF document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		return runGeneration(cmd, "PDF "+ref, strings.HasPrefix(ref, "s3://"), func(ctx context.Context, p *generator.Pipeline, maxItems int) (*dataset.Dataset, error) {
			return p.FromPDF(ctx, ref, maxItems)
		})
	},
}

var generate10KCmd = &cobra.Command{
	Use:   "10k",
	Short: "Generate from a company's annual report (10-K)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, _ := cmd.Flags().GetString("ticker")
		year, _ := cmd.Flags().GetInt("year")
		items, _ := cmd.Flags().GetStringSlice("items")

		title := fmt.Sprintf("10-K %s %d", strings.ToUpper(ticker), year)
		return runGeneration(cmd, title, false, func(ctx context.Context, p *generator.Pipeline, maxItems int) (*dataset.Dataset, error) {
			return p.From10K(ctx, ticker, year, maxItems, items...)
		})
	},
}

var generate10QCmd = &cobra.Command{
	Use:   "10q",
	Short: "Generate from a company's quarterly report (10-Q)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, _ := cmd.Flags().GetString("ticker")
		year, _ := cmd.Flags().GetInt("year")
		quarter, _ := cmd.Flags().GetInt("quarter")
		items, _ := cmd.Flags().GetStringSlice("items")

		title := fmt.Sprintf("10-Q %s %d Q%d", strings.ToUpper(ticker), year, quarter)
		return runGeneration(cmd, title, false, func(ctx context.Context, p *generator.Pipeline, maxItems int) (*dataset.Dataset, error) {
			return p.From10Q(ctx, ticker, year, quarter, maxItems, items...)
		})
	},
}

type generateFunc func(ctx context.Context, p *generator.Pipeline, maxItems int) (*dataset.Dataset, error)

// runGeneration wires config, store, provider and sources into a pipeline,
// runs fn with a progress display and writes the dataset. withS3 builds an
// S3 client for s3:// references.
func runGeneration(cmd *cobra.Command, title string, withS3 bool, fn generateFunc) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyGenerateFlags(cmd, cfg)
	maxItems, _ := cmd.Flags().GetInt("max")
	out, _ := cmd.Flags().GetString("out")
	plain, _ := cmd.Flags().GetBool("plain")

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	backend, err := generator.NewLLMBackend(provider, generator.LLMConfig{
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		Validators:  generator.DefaultValidators(cfg.Generator.GroundedContext),
		Log:         log,
	})
	if err != nil {
		return err
	}

	opts := generator.Options{
		Concurrency:   cfg.Generator.Concurrency,
		SkipZeroQuota: cfg.Generator.SkipZeroQuota,
		Pacer:         generator.NewPacer(cfg.Generator.Delay, cfg.Generator.RateLimit, cfg.Generator.Burst),
		Log:           log,
	}

	var display *ui.Generation
	if !plain && isTerminal(os.Stderr) {
		display = ui.NewGeneration(title, maxItems, os.Stderr)
		opts.OnProgress = display.Progress
		// Chunk failures show in the display; log lines would tear it.
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	pipeline, err := newPipeline(ctx, cfg, withS3, generator.NewEngine(backend, opts), st, backend.Model(), log)
	if err != nil {
		return err
	}

	var ds *dataset.Dataset
	run := func(ctx context.Context) error {
		var err error
		ds, err = fn(ctx, pipeline, maxItems)
		return err
	}
	if display != nil {
		err = display.Run(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return err
	}

	return writeDataset(cmd, ds, out, log)
}

func newPipeline(ctx context.Context, cfg *config.Config, withS3 bool, engine *generator.Engine, st *store.Store, model string, log logrus.FieldLogger) (*generator.Pipeline, error) {
	pdf := &source.PDFSource{}
	if withS3 {
		client, err := source.NewS3Client(ctx, source.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		pdf.S3 = source.NewS3Fetcher(client)
	}

	return &generator.Pipeline{
		Engine:         engine,
		TextSplitter:   chunker.New(cfg.Chunker.TextSize, cfg.Chunker.TextOverlap),
		FilingSplitter: chunker.New(cfg.Chunker.FilingSize, cfg.Chunker.FilingOverlap),
		PDF:            pdf,
		EDGAR: source.NewEDGAR(source.EDGARConfig{
			Identity:         cfg.EDGAR.UserAgent(),
			BaseURL:          cfg.EDGAR.BaseURL,
			DataURL:          cfg.EDGAR.DataURL,
			MinSectionLength: cfg.EDGAR.MinSectionLength,
			Log:              log,
		}),
		Runs:  st.RunRepo(),
		Model: model,
		Log:   log,
	}, nil
}

func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Generator.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("delay") {
		cfg.Generator.Delay, _ = cmd.Flags().GetDuration("delay")
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// readTexts reads each file argument as one text. No arguments or "-"
// reads stdin.
func readTexts(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	texts := make([]string, 0, len(args))
	for _, a := range args {
		var (
			b   []byte
			err error
		)
		if a == "-" {
			b, err = io.ReadAll(cmd.InOrStdin())
		} else {
			b, err = os.ReadFile(a)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", a, err)
		}
		texts = append(texts, string(b))
	}
	return texts, nil
}

func writeDataset(cmd *cobra.Command, ds *dataset.Dataset, out string, log logrus.FieldLogger) error {
	if out == "" || out == "-" {
		return ds.WriteJSON(cmd.OutOrStdout())
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := ds.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	log.WithFields(logrus.Fields{"items": ds.Len(), "path": out}).Info("wrote dataset")
	return nil
}

func init() {
	pf := generateCmd.PersistentFlags()
	pf.IntP("max", "n", 10, "Maximum number of items to generate")
	pf.StringP("out", "o", "", "Write the dataset to this file instead of stdout")
	pf.Int("concurrency", 1, "Chunks generated in parallel (overrides generator.concurrency)")
	pf.Duration("delay", 0, "Pause before every chunk call, e.g. 2s (overrides generator.delay)")
	pf.Bool("plain", false, "Log progress lines instead of the interactive display")

	for _, c := range []*cobra.Command{generate10KCmd, generate10QCmd} {
		c.Flags().String("ticker", "", "Company ticker symbol, e.g. SNOW")
		c.Flags().Int("year", 0, "Fiscal (10-K) or filing (10-Q) year")
		c.Flags().StringSlice("items", nil, `Items to use, e.g. "Item 1A,Item 7" (default all)`)
		_ = c.MarkFlagRequired("ticker")
		_ = c.MarkFlagRequired("year")
	}
	generate10QCmd.Flags().Int("quarter", 0, "Calendar quarter the 10-Q was filed in (1-4)")
	_ = generate10QCmd.MarkFlagRequired("quarter")

	generateCmd.AddCommand(generateTextCmd)
	generateCmd.AddCommand(generatePDFCmd)
	generateCmd.AddCommand(generate10KCmd)
	generateCmd.AddCommand(generate10QCmd)
}
