package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/hurttlocker/dyntopics/internal/config"
	"github.com/hurttlocker/dyntopics/internal/logging"
	"github.com/hurttlocker/dyntopics/internal/mcp"
	"github.com/hurttlocker/dyntopics/internal/pipeline"
	"github.com/hurttlocker/dyntopics/internal/render"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "merge":
		err = runMerge(ctx, args[1:], stdout, stderr)
	case "track":
		err = runTrack(ctx, args[1:], stdout, stderr)
	case "mcp":
		err = runMCP(args[1:], stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "dyntopics %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// selectionFlags are shared by merge and track.
type selectionFlags struct {
	configPath string
	model      string
	manifest   string
	pattern    string
	basePath   string
	extension  string
	logLevel   string
}

func (s *selectionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.configPath, "config", "", "config file (default ~/.dyntopics/config.yaml)")
	fs.StringVar(&s.model, "m", "", "path to the dynamic topic model")
	fs.StringVar(&s.model, "model", "", "path to the dynamic topic model")
	fs.StringVar(&s.manifest, "s", "", "manifest listing the number of topics chosen per window")
	fs.StringVar(&s.manifest, "selected_file", "", "manifest listing the number of topics chosen per window")
	fs.StringVar(&s.pattern, "p", "", "pattern selecting which manifest windows to use")
	fs.StringVar(&s.pattern, "pattern", "", "pattern selecting which manifest windows to use")
	fs.StringVar(&s.basePath, "b", "", "directory that contains the window models")
	fs.StringVar(&s.basePath, "base_path", "", "directory that contains the window models")
	fs.StringVar(&s.extension, "extension", "", "window model file extension (default .pkl)")
	fs.StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func (s *selectionFlags) options() config.ResolveOptions {
	return config.ResolveOptions{
		ConfigPath:   s.configPath,
		CLIModel:     s.model,
		CLIManifest:  s.manifest,
		CLIPattern:   s.pattern,
		CLIBasePath:  s.basePath,
		CLIExtension: s.extension,
		CLILogLevel:  s.logLevel,
	}
}

func runMerge(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var sel selectionFlags
	sel.register(fs)
	var output, format, logFile string
	fs.StringVar(&output, "o", "", "output path (default dynamic-combined.pkl)")
	fs.StringVar(&output, "output", "", "output path (default dynamic-combined.pkl)")
	fs.StringVar(&format, "format", "", "output encoding: json or sqlite (default json)")
	fs.StringVar(&logFile, "l", "", "log file")
	fs.StringVar(&logFile, "log", "", "log file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := windowArgs(fs)
	if err != nil {
		return err
	}

	opts := sel.options()
	opts.CLIOutput = output
	opts.CLIFormat = format
	opts.CLILogFile = logFile
	cfg, err := config.ResolveConfig(opts)
	if err != nil {
		return err
	}
	if cfg.DynamicModel.Value == "" {
		return fmt.Errorf("no dynamic model given (use -m <path>)")
	}
	bundleFormat, err := cfg.BundleFormat()
	if err != nil {
		return err
	}
	files, err := pipeline.WindowFiles(cfg.Manifest.Value, cfg.Selection(), paths)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	defer logger.Sync()

	sum, err := pipeline.NewRunner(logger).Merge(ctx, pipeline.MergeOptions{
		DynamicModel: cfg.DynamicModel.Value,
		WindowFiles:  files,
		Output:       cfg.Output.Value,
		Format:       bundleFormat,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Merged %d documents from %d windows into %s\n", sum.Documents, sum.Windows, sum.Output)
	return nil
}

func runTrack(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var sel selectionFlags
	sel.register(fs)
	var top int
	var long bool
	var topics, output, logFile string
	fs.IntVar(&top, "t", 0, "number of top terms to display (default 10)")
	fs.IntVar(&top, "top", 0, "number of top terms to display (default 10)")
	fs.BoolVar(&long, "l", false, "long format display")
	fs.BoolVar(&long, "long", false, "long format display")
	fs.StringVar(&topics, "d", "", "comma separated dynamic topic numbers to display (default all)")
	fs.StringVar(&topics, "dynamic", "", "comma separated dynamic topic numbers to display (default all)")
	fs.StringVar(&output, "o", "", "write the report to this file instead of stdout")
	fs.StringVar(&output, "output", "", "write the report to this file instead of stdout")
	fs.StringVar(&logFile, "log", "", "log file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := windowArgs(fs)
	if err != nil {
		return err
	}

	opts := sel.options()
	opts.CLILogFile = logFile
	if top != 0 {
		opts.CLITop = strconv.Itoa(top)
	}
	cfg, err := config.ResolveConfig(opts)
	if err != nil {
		return err
	}
	if cfg.DynamicModel.Value == "" {
		return fmt.Errorf("no dynamic model given (use -m <path>)")
	}
	n, err := cfg.TopN()
	if err != nil {
		return err
	}
	filter, err := render.ParseTopicFilter(topics)
	if err != nil {
		return err
	}
	files, err := pipeline.WindowFiles(cfg.Manifest.Value, cfg.Selection(), paths)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	defer logger.Sync()

	trackOpts := pipeline.TrackOptions{
		DynamicModel: cfg.DynamicModel.Value,
		WindowFiles:  files,
		Top:          n,
		Long:         long,
		Topics:       filter,
	}
	runner := pipeline.NewRunner(logger)
	if output == "" {
		_, err = runner.Track(ctx, trackOpts, stdout)
		return err
	}

	// Buffer so a failed run leaves no report file behind.
	var buf bytes.Buffer
	if _, err := runner.Track(ctx, trackOpts, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// windowArgs returns the positional window model paths. flag stops at the
// first positional argument, so a flag given after a path would otherwise
// be read as a file name.
func windowArgs(fs *flag.FlagSet) ([]string, error) {
	for _, arg := range fs.Args() {
		if len(arg) > 1 && strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %s given after window model paths; put flags before the paths", arg)
		}
	}
	return fs.Args(), nil
}

func runMCP(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath, logFile string
	fs.StringVar(&configPath, "config", "", "config file (default ~/.dyntopics/config.yaml)")
	fs.StringVar(&logFile, "log", "", "log file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.ResolveConfig(config.ResolveOptions{ConfigPath: configPath, CLILogFile: logFile})
	if err != nil {
		return err
	}
	top, err := cfg.TopN()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	defer logger.Sync()

	return mcp.Serve(mcp.ServerConfig{
		Runner:    pipeline.NewRunner(logger),
		Version:   version,
		Selection: cfg.Selection(),
		Top:       top,
	})
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `dyntopics %s — align window topic models with a dynamic topic model

Usage:
  dyntopics <command> [flags] [window_model ...]

Commands:
  merge      Merge window document partitions into one partition over dynamic topics
  track      Show the window topics that make up each dynamic topic
  mcp        Serve merge and track as MCP tools over stdio
  version    Print version

Shared Flags:
  -m, --model <path>           Dynamic topic model
  -s, --selected_file <path>   Manifest of per-window topic counts (header, then prefix,k rows)
  -p, --pattern <regex>        Select manifest windows whose file name starts with a match
  -b, --base_path <dir>        Directory that contains the window models
      --config <path>          Config file (default ~/.dyntopics/config.yaml)
      --log-level <level>      debug, info, warn or error

Merge Flags:
  -o, --output <path>          Output model (default dynamic-combined.pkl)
      --format json|sqlite     Output encoding (default json)
  -l, --log <path>             Log file

Track Flags:
  -t, --top <n>                Number of top terms to display (default 10)
  -l, --long                   Long format display
  -d, --dynamic <1,3,...>      Only show these dynamic topics
  -o, --output <path>          Write the report to a file
      --log <path>             Log file

Flags go before the window model paths. Window models are processed in the
order given; that order defines the window numbers shown by track.
`, version)
}
