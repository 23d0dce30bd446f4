// Command landpipe runs the land-use change pipeline: extraction of the
// sparse observation table from a raster stack, and prediction of a
// probability surface from stored observations via an external scoring
// service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/anabrs1/TELMA-CS/internal/config"
	"github.com/anabrs1/TELMA-CS/internal/landuse"
	"github.com/anabrs1/TELMA-CS/internal/pipeline"
	"github.com/anabrs1/TELMA-CS/internal/predict"
	"github.com/anabrs1/TELMA-CS/internal/version"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: landpipe <command> [flags]

commands:
  extract   build the sparse observation table from the input rasters
  predict   score stored observations and write a probability map
  runs      list recorded pipeline runs
  version   print build information
`)
	os.Exit(2)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("landpipe: ")

	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "extract":
		err = runExtract(os.Args[2:])
	case "predict":
		err = runPredict(os.Args[2:])
	case "runs":
		err = runList(os.Args[2:])
	case "version":
		fmt.Printf("landpipe %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.PipelineConfig, error) {
	cfgPath := fs.String("config", "config/pipeline.json", "Path to pipeline config JSON")
	inputDir := fs.String("input-dir", "", "Override input data directory")
	outputDir := fs.String("output-dir", "", "Override output directory")
	focus := fs.Bool("focus-cropland", false, "Focus on cropland transitions only")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, err
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *focus {
		cfg.FocusCroplandTransitions = true
	}
	return cfg, nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	path, err := p.RunExtraction()
	if err != nil {
		return err
	}
	log.Printf("extraction complete: %s", path)
	return nil
}

func runPredict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	template := fs.String("template", "", "Template raster for output georeferencing (required)")
	table := fs.String("table", "", "Sparse table path (default <output_dir>/processed_data.parquet)")
	class := fs.Int("class", landuse.ClassArable, "Target class of interest")
	scorerURL := fs.String("scorer-url", "", "Override scoring service endpoint")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *scorerURL != "" {
		cfg.ScorerURL = *scorerURL
	}
	if cfg.ScorerURL == "" {
		return fmt.Errorf("a scoring service endpoint is required (scorer_url or -scorer-url)")
	}
	if *template == "" {
		return fmt.Errorf("-template is required")
	}
	tablePath := *table
	if tablePath == "" {
		tablePath = filepath.Join(cfg.OutputDir, pipeline.TableFileName)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	scorer := predict.NewRESTScorer(cfg.ScorerURL)
	path, err := p.RunPrediction(scorer, tablePath, *template, *class)
	if err != nil {
		return err
	}
	log.Printf("prediction complete: %s", path)
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum runs to list")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if cfg.RegistryPath == "" {
		return fmt.Errorf("no registry_path configured")
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	runs, err := p.Registry.Runs(*limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %-8s %-7s rows=%-10d %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Status, r.Rows, r.OutputPath)
	}
	return nil
}
