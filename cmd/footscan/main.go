// Command footscan detects footstep-like transients in WAV recordings.
//
// Usage:
//
//	footscan [flags] file.wav ...
//
// Each channel runs its own detector. The report lists every event with its
// confidence, threshold and spectral profile. With --write an enhanced copy
// is written next to each input (or into --out-dir), amplifying the signal
// around detected events.
//
// Examples:
//
//	footscan walk.wav
//	footscan --preset conservative --sensitivity 0.3 *.wav
//	footscan -c footscan.yaml --write --out-dir enhanced take1.wav
//	footscan --list-presets
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
	"github.com/cwbudde/algo-stepdetect/internal/cli"
	"github.com/cwbudde/algo-stepdetect/internal/config"
	"github.com/cwbudde/algo-stepdetect/internal/scan"
)

var version = "0.1.0"

const description = "Footstep transient detector for WAV recordings"

// CLI defines the command-line interface.
type CLI struct {
	Version     bool     `short:"v" help:"Show version information."`
	Config      string   `short:"c" type:"existingfile" help:"Path to a YAML config file."`
	Preset      string   `short:"p" help:"Detector preset (balanced, conservative, permissive)."`
	Sensitivity *float64 `short:"s" help:"Detection sensitivity in [0, 1]; higher detects more."`
	BlockSize   *int     `name:"block-size" help:"Samples per detector block."`
	Write       bool     `short:"w" help:"Write an enhanced copy of each input."`
	OutDir      string   `name:"out-dir" type:"existingdir" help:"Directory for enhanced files (default: next to input)."`
	Bypass      bool     `help:"Write inputs unmodified instead of enhancing them."`
	LogLevel    string   `name:"log-level" help:"Log level (debug, info, warn, error)."`
	MaxRows     int      `name:"max-rows" default:"20" help:"Events listed per file; 0 lists all."`
	Jobs        int      `short:"j" default:"0" help:"Files scanned in parallel; 0 uses all CPUs."`
	ListPresets bool     `name:"list-presets" help:"List detector presets and exit."`
	Files       []string `arg:"" name:"files" help:"WAV files to scan." type:"existingfile" optional:""`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cliArgs CLI
	parser, err := kong.New(&cliArgs,
		kong.Name("footscan"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Help(cli.StyledHelpPrinter(description)),
	)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		return 2
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		return 2
	}
	if helpRequested(args) {
		return 0
	}

	if cliArgs.Version {
		cli.PrintVersion(stdout, version)
		return 0
	}
	if cliArgs.ListPresets {
		printPresets(stdout)
		return 0
	}
	if len(cliArgs.Files) == 0 {
		cli.PrintError(stderr, "no input files specified")
		_ = kctx.PrintUsage(false)
		return 1
	}

	cfg, err := loadConfig(cliArgs)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Slog()}))
	logger.Debug("configuration",
		"preset", cfg.Preset,
		"sensitivity", cfg.Sensitivity,
		"block_size", cfg.BlockSize,
		"write", cliArgs.Write,
		"bypass", cfg.Output.Bypass,
	)

	opts := []scan.Option{scan.WithLogger(logger), scan.WithParallelism(cliArgs.Jobs)}
	if cliArgs.Write {
		opts = append(opts, scan.WithOutput(cliArgs.OutDir))
	}
	scanner, err := scan.New(cfg, opts...)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		return 1
	}
	bands := scanner.Bands()

	results, err := scanner.ScanFiles(ctx, cliArgs.Files, nil)
	for _, r := range results {
		switch {
		case r.Err != nil:
			cli.PrintError(stderr, fmt.Sprintf("%s: %v", r.Path, r.Err))
		case r.Report != nil:
			cli.PrintReport(stdout, r.Report, bands, cliArgs.MaxRows)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			cli.PrintError(stderr, "interrupted")
		} else {
			cli.PrintError(stderr, err.Error())
		}
		return 130
	}

	if len(results) > 1 {
		if failed := cli.PrintSummary(stdout, results); failed > 0 {
			return 1
		}
		return 0
	}
	if results[0].Err != nil {
		return 1
	}
	return 0
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(args CLI) (*config.Config, error) {
	cfg := config.Default()
	if args.Config != "" {
		var err error
		if cfg, err = config.Load(args.Config); err != nil {
			return nil, err
		}
	}

	if args.Preset != "" {
		cfg.Preset = args.Preset
	}
	if args.Sensitivity != nil {
		cfg.Sensitivity = *args.Sensitivity
	}
	if args.BlockSize != nil {
		cfg.BlockSize = *args.BlockSize
	}
	if args.Bypass {
		cfg.Output.Bypass = true
	}
	if args.LogLevel != "" {
		cfg.LogLevel = config.LogLevel(args.LogLevel)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printPresets(w io.Writer) {
	fmt.Fprintln(w, cli.TitleStyle.Render("Presets"))
	for _, name := range footstep.Presets() {
		p, err := footstep.Preset(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n",
			cli.KeyStyle.Render(fmt.Sprintf("%-14s", name)),
			cli.ValueStyle.Render(fmt.Sprintf("threshold %.2f..%.2f, cooldown %.0f ms, primary share %.2f",
				p.Threshold.Min, p.Threshold.Max, p.CooldownMs, p.Likelihood.MinPrimaryShare)),
		)
	}
}

func helpRequested(args []string) bool {
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}
