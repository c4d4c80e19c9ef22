package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mohsinsiddi/ronexport/internal/address"
	"github.com/Mohsinsiddi/ronexport/internal/config"
	"github.com/Mohsinsiddi/ronexport/internal/export"
	"github.com/Mohsinsiddi/ronexport/internal/logging"
	"github.com/Mohsinsiddi/ronexport/internal/ronin"
	"github.com/Mohsinsiddi/ronexport/internal/secret"
	"github.com/Mohsinsiddi/ronexport/internal/telemetry"
	"github.com/Mohsinsiddi/ronexport/internal/ui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/ronexport/cmd.Version=1.2.3" .
var Version = "0.1.0"

// openKeystore opens the API-key store for a config dir. Tests swap it for
// an in-memory keyring.
var openKeystore = secret.DefaultKeystore

const dotEnvFile = ".env"

// rootOptions carries flag values and the state built in PersistentPreRunE.
type rootOptions struct {
	cfgDir    string
	host      string
	outputDir string
	retries   int
	skipSelf  bool
	verbose   bool

	env    config.EnvSource
	stderr io.Writer

	cfg  *config.Config
	logs *zap.SugaredLogger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.FromEnviron(), os.Stderr)
}

func newRootCmd(env config.EnvSource, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{env: env, stderr: stderr}

	root := &cobra.Command{
		Use:   "ronexport [address]",
		Short: "Export every transaction of a Ronin address to JSON",
		Long: `ronexport walks the sent and received transaction listings of a Ronin
address on ronin.rest, decodes every transaction and its receipt, and writes
the records ordered by block number to <ADDRESS>.json.

The address may be given as 0x… or ronin:…. Without an argument it is
prompted for on standard input.

Examples:
  ronexport
  ronexport ronin:d8da6bf26964af9d7eed9e03e53415d37aa96045
  echo 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 | ronexport --output-dir out`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args)
		},
	}

	defaultDir := ""
	if envDir, ok := env.Lookup(config.EnvConfigDir); ok {
		defaultDir = envDir
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgDir, "config", defaultDir, "config directory (default: ~/.ronexport)")
	pf.StringVar(&opts.host, "host", "", "ronin.rest base URL (default: https://ronin.rest)")
	pf.StringVar(&opts.outputDir, "output-dir", "", "directory the export is written to (default: .)")
	pf.IntVar(&opts.retries, "retries", 0, "retries per request on 429, 5xx and transport errors (default: 3)")
	pf.BoolVar(&opts.skipSelf, "skip-self", false, "skip transactions sent from the address to itself")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newChecksumCmd(),
		newConfigCmd(opts),
	)
	return root
}

// load resolves config in order: config.json, .env and environment, flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return fmt.Errorf("loading %s: %w", dotEnvFile, err)
	}
	if err := cfg.ApplyEnv(o.env); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("retries") {
		cfg.Retries = o.retries
	}
	if flags.Changed("skip-self") {
		cfg.SkipSelf = o.skipSelf
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	o.cfg = cfg
	o.logs = logging.NewZapLogger(o.stderr, "ronexport", logging.Level(o.verbose))
	return nil
}

func runExport(cmd *cobra.Command, opts *rootOptions, args []string) error {
	out := cmd.OutOrStdout()
	cfg := opts.cfg

	var raw string
	if len(args) == 1 {
		raw = args[0]
		if err := address.ValidateInput(raw); err != nil {
			return err
		}
	} else {
		var err error
		raw, err = ui.PromptAddress(cmd.InOrStdin(), out, "Ronin address", address.ValidateInput)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logs := opts.logs.With("run", runID)
	defer func() { _ = logs.Sync() }()

	shutdown, err := telemetry.InitTracer(ctx, "ronexport", Version, cfg.OtelEndpoint)
	if err != nil {
		logs.Warnw("tracing disabled", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logs.Debugw("tracer shutdown", "error", err)
		}
	}()

	ctx, span := otel.Tracer("github.com/Mohsinsiddi/ronexport/cmd").Start(ctx, "ronexport",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	envKey, _ := opts.env.Lookup(config.EnvAPIKey)
	apiKey, err := openKeystore(cfg.Dir()).ResolveAPIKey(envKey)
	if err != nil {
		logs.Warnw("api key unavailable, continuing without one", "error", err)
	}

	client := ronin.NewClient(cfg.Host,
		ronin.WithAPIKey(apiKey),
		ronin.WithRetries(cfg.Retries),
		ronin.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
		ronin.WithLogger(logs),
	)

	logs.Infow("starting export", "host", client.Host(), "retries", cfg.Retries, "skip_self", cfg.SkipSelf)

	prog := newProgress(out)
	defer prog.stop()

	exporter := export.New(client,
		export.WithLogger(logs),
		export.WithObserver(prog),
		export.WithSkipSelf(cfg.SkipSelf),
	)
	prog.start()
	res, err := exporter.Run(ctx, raw)
	if err != nil {
		return err
	}

	path, err := export.WriteFile(cfg.OutputDir, res.Address, res.Records)
	if err != nil {
		return err
	}
	logs.Infow("export written", "address", res.Address.Hex(), "path", path, "records", len(res.Records))

	s := res.Summary
	pairs := [][2]string{
		{"Address", ui.Addr(res.Address.Hex())},
		{"Ronin", ui.Addr(address.ToRonin(res.Address))},
		{"Sent", fmt.Sprint(s.Sent)},
		{"Received", fmt.Sprint(s.Received)},
		{"Unique", fmt.Sprint(s.Unique)},
	}
	if cfg.SkipSelf {
		pairs = append(pairs, [2]string{"Skipped (self)", fmt.Sprint(s.Skipped)})
	}
	pairs = append(pairs,
		[2]string{"Exported", fmt.Sprint(s.Exported)},
		[2]string{"File", path},
	)
	fmt.Fprintln(out, ui.KeyValueBlock("Export complete", pairs))
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wrote %d records to %s", s.Exported, path)))
	return nil
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		if errors.Is(err, ui.ErrPromptCancelled) {
			fmt.Fprintln(os.Stderr, ui.Warn("cancelled"))
		} else {
			fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		}
		os.Exit(1)
	}
}
