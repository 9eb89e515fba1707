// Package main provides the CLI entrypoint for sonido-tempo.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tempo/config"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/report"
	"github.com/RyanBlaney/sonido-tempo/server"
	"github.com/RyanBlaney/sonido-tempo/tempo"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configPath  string
	start       float64
	end         float64
	minBPM      int
	maxBPM      int
	sensitivity int
	jsonOutput  bool
	listen      string
	noColor     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "sonido-tempo",
		Short:         "Estimate the tempo of audio files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "path to TOML config")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored logs and report styling")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze the tempo of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}

	cmd.Flags().Float64Var(&opts.start, "start", 0, "window start in seconds")
	cmd.Flags().Float64Var(&opts.end, "end", -1, "window end in seconds (negative: end of file)")
	cmd.Flags().IntVar(&opts.minBPM, "min", 0, "minimum BPM (default from config)")
	cmd.Flags().IntVar(&opts.maxBPM, "max", 0, "maximum BPM (default from config)")
	cmd.Flags().IntVar(&opts.sensitivity, "sensitivity", 0, "onset sensitivity 1-10 (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the result as JSON")

	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tempo analysis over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default from config)")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sonido-tempo %s\n", version)
		},
	}
}

// loadConfig layers the TOML file, .env, SONIDO_TEMPO_* variables and
// explicitly set flags, then installs the configured logger.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	if err := config.LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	applyFlags(cmd, opts, &cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewLogrus(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, err
	}
	logging.SetGlobalLogger(logger)
	if !colorEnabled(opts, os.Stderr) {
		logging.DisableColors()
	}

	return cfg, nil
}

func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("min") {
		cfg.Analysis.MinBPM = opts.minBPM
	}
	if flags.Changed("max") {
		cfg.Analysis.MaxBPM = opts.maxBPM
	}
	if flags.Changed("sensitivity") {
		cfg.Analysis.Sensitivity = opts.sensitivity
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = opts.listen
	}
}

func runAnalyze(cmd *cobra.Command, opts *options, path string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	audio, err := transcode.NewDecoder(transcode.DecoderConfigFrom(cfg.Decoder)).DecodeFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channel, err := audio.Channel(0)
	if err != nil {
		return err
	}

	analyzer := tempo.NewAnalyzer(tempo.AnalyzerConfigFrom(cfg.Analysis))
	res, err := analyzer.AnalyzeChannel(ctx, channel, audio.SampleRate, opts.start, opts.end, tempo.ParamsFrom(cfg.Analysis))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		return report.JSON(out, res)
	}
	return report.Text(out, res, colorEnabled(opts, out))
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	decoder := transcode.NewDecoder(transcode.DecoderConfigFrom(cfg.Decoder))
	if err := decoder.CheckAvailability(cmd.Context()); err != nil {
		return err
	}

	srv := server.New(
		cfg.Server,
		tempo.NewAnalyzer(tempo.AnalyzerConfigFrom(cfg.Analysis)),
		decoder,
		tempo.ParamsFrom(cfg.Analysis),
	)
	return srv.ListenAndServe(cmd.Context())
}

// colorEnabled reports whether output to w may carry ANSI styling: w must be
// a terminal and neither --no-color nor NO_COLOR may be set.
func colorEnabled(opts *options, w any) bool {
	if opts.noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
