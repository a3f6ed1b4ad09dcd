package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"footprints/pkg/config"
	"footprints/pkg/geo"
	"footprints/pkg/logging"
	"footprints/pkg/pipeline"
	"footprints/pkg/reproject"
	"footprints/pkg/version"
)

const defaultConfigPath = "configs/footprints.yaml"

type cliOptions struct {
	input       string
	output      string
	configPath  string
	layer       string
	initConfig  string
	currentYear int
	tolerance   float64
	showVersion bool

	set map[string]bool // Flags given explicitly on the command line
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	defaults := config.DefaultConfig()
	opts := &cliOptions{set: make(map[string]bool)}

	flags := flag.NewFlagSet("footprints", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.input, "input", "", "Path to input dataset (.shp, .geojson, .geojsonl, .gpkg)")
	flags.StringVar(&opts.output, "output", "", "Path to output newline delimited GeoJSON file")
	flags.IntVar(&opts.currentYear, "current-year", defaults.Years.CurrentYear, "Latest plausible construction year")
	flags.Float64Var(&opts.tolerance, "simplify", defaults.Simplify.Tolerance, "Simplification tolerance in degrees (<= 0 disables)")
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to YAML config file")
	flags.StringVar(&opts.layer, "layer", "", "GeoPackage layer (default: first feature table)")
	flags.StringVar(&opts.initConfig, "init-config", "", "Write a default config file to this path and exit")
	flags.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	flags.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})

	if opts.initConfig != "" || opts.showVersion {
		return opts, nil
	}
	if opts.input == "" || opts.output == "" {
		flags.Usage()
		return nil, errors.New("--input and --output are required")
	}
	return opts, nil
}

// apply overrides config values with explicitly given flags.
func (o *cliOptions) apply(cfg *config.Config) {
	if o.set["current-year"] {
		cfg.Years.CurrentYear = o.currentYear
	}
	if o.set["simplify"] {
		cfg.Simplify.Tolerance = o.tolerance
	}
	if o.set["layer"] {
		cfg.Input.Layer = o.layer
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Println(version.Version)
		return
	}

	// Handle --init-config flag
	if opts.initConfig != "" {
		if err := config.GenerateDefault(opts.initConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", opts.initConfig)
		return
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *cliOptions, stdout io.Writer) error {
	// 1. Environment (.env is optional)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. Config: defaults < file < env < flags
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 3. Logging
	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Footprints started", "version", version.Version)

	// 4. Geometry kernel and projection engine
	kernel := geo.NewGEOSKernel()
	simplifier, err := geo.NewSimplifier(cfg.Simplify.Algorithm, kernel)
	if err != nil {
		return err
	}

	reprojector := reproject.NewService(slog.Default())
	defer reprojector.Close()

	// 5. Run
	p := pipeline.New(slog.Default(), kernel, simplifier, reprojector)
	n, err := p.Run(pipeline.Options{
		InputPath:   opts.input,
		OutputPath:  opts.output,
		Layer:       cfg.Input.Layer,
		CurrentYear: cfg.Years.CurrentYear,
		Tolerance:   cfg.Simplify.Tolerance,
		YearField:   cfg.Fields.Year,
		IDField:     cfg.Fields.ID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Exported %d buildings to %s\n", n, opts.output)
	return nil
}
