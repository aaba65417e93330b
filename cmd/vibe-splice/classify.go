package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-splice/internal/cache"
	"github.com/inodb/vibe-splice/internal/duckdb"
	"github.com/inodb/vibe-splice/internal/event"
	"github.com/inodb/vibe-splice/internal/output"
)

// classifyOptions holds the resolved inputs of one classify run.
type classifyOptions struct {
	gtfPath   string
	modelPath string
	assembly  string
	region    string
	chrom     string
	biotypes  []string
	workers   int
	outputDir string
	dbPath    string
	cacheDir  string
	noCache   bool
}

func newClassifyCmd() *cobra.Command {
	var opts classifyOptions

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify complex splicing events",
		Long: `Classify CO, CF and CL events for every gene of a gene model and write one
tab-delimited table per event type (CO.txt, CF.txt, CL.txt).

The gene model is read from a GTF (--gtf, plain, .gz or .xz), from a JSON gene
dictionary (--model), or from the GENCODE GTF fetched by "vibe-splice download".
Parsed GTFs are cached as gob files and reused while the GTF is unchanged.`,
		Example: `  vibe-splice classify
  vibe-splice classify --gtf gencode.v46.annotation.gtf.gz --biotype protein_coding
  vibe-splice classify --gtf genes.gtf --region chr12:25205246-25250936 -o kras/
  vibe-splice classify --model genes.json --db events.duckdb`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.gtfPath != "" && opts.modelPath != "" {
				return usageErrorf("--gtf and --model are mutually exclusive")
			}
			if !cmd.Flags().Changed("workers") {
				opts.workers = viper.GetInt("workers")
			}
			opts.outputDir = configValue(cmd, "output", "output.dir")
			opts.dbPath = configValue(cmd, "db", "db.path")
			opts.cacheDir = configValue(cmd, "cache-dir", "gtf.cache")

			stats, err := runClassify(opts, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Classified %d of %d genes: %d CO, %d CL, %d CF events\n",
				stats.Classified, stats.Genes,
				stats.Events[event.Internal], stats.Events[event.Last], stats.Events[event.First])
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.gtfPath, "gtf", "", "GTF gene model (default: downloaded GENCODE GTF)")
	f.StringVar(&opts.modelPath, "model", "", "JSON gene dictionary instead of a GTF")
	f.StringVar(&opts.assembly, "assembly", "GRCh38", "Assembly of the downloaded GENCODE GTF: GRCh37 or GRCh38")
	f.StringVar(&opts.region, "region", "", "Only classify genes overlapping chrom:start-end")
	f.StringVar(&opts.chrom, "chrom", "", "Only load genes on this chromosome")
	f.StringSliceVar(&opts.biotypes, "biotype", nil, "Only load transcripts with these biotypes (repeatable)")
	f.IntVar(&opts.workers, "workers", 0, "Worker goroutines (default: one per CPU)")
	f.StringP("output", "o", ".", "Output directory for CO.txt, CF.txt and CL.txt")
	f.String("db", "", "DuckDB database to record the run in")
	f.String("cache-dir", "", "Directory for parsed GTF caches (default: next to the GTF)")
	f.BoolVar(&opts.noCache, "no-cache", false, "Always parse the GTF and remove any existing gene model cache")

	return cmd
}

// runClassify loads the gene model, classifies every selected gene and
// writes the event tables and, when configured, the DuckDB run.
func runClassify(opts classifyOptions, logger *zap.Logger) (*event.Stats, error) {
	var region *genomicRegion
	if opts.region != "" {
		r, err := parseRegion(opts.region)
		if err != nil {
			return nil, usageError{err}
		}
		if opts.modelPath != "" {
			return nil, usageErrorf("--region requires a GTF gene model")
		}
		region = &r
		opts.chrom = r.chrom
	}

	genes, source, err := loadGenes(opts, region, logger)
	if err != nil {
		return nil, err
	}

	tables, err := output.CreateTables(opts.outputDir)
	if err != nil {
		return nil, err
	}
	writers := []event.RecordWriter{tables}

	if opts.dbPath != "" {
		store, err := duckdb.Open(opts.dbPath)
		if err != nil {
			tables.Close()
			return nil, err
		}
		defer store.Close()

		runID, err := store.BeginRun(source)
		if err != nil {
			tables.Close()
			return nil, err
		}
		logger.Info("recording run", zap.String("run_id", runID), zap.String("db", opts.dbPath))
		writers = append(writers, store.NewEventSink(runID))
	}

	c := event.NewClassifier()
	c.SetWorkers(opts.workers)
	c.SetLogger(logger)

	stats, err := c.ClassifyAll(genes, output.MultiWriter(writers...))
	if err != nil {
		tables.Close()
		return nil, err
	}
	if err := tables.Close(); err != nil {
		return nil, err
	}
	for _, t := range event.Types {
		logger.Debug("wrote event table", zap.String("type", string(t)), zap.String("path", tables.Path(t)))
	}
	return stats, nil
}

// loadGenes returns the classifier input and a description of its source.
func loadGenes(opts classifyOptions, region *genomicRegion, logger *zap.Logger) ([]*event.Gene, string, error) {
	if opts.modelPath != "" {
		genes, err := loadModel(opts.modelPath, opts.chrom)
		if err != nil {
			return nil, "", err
		}
		logger.Info("loaded gene model", zap.String("model", opts.modelPath), zap.Int("genes", len(genes)))
		return genes, opts.modelPath, nil
	}

	gtfPath := opts.gtfPath
	if gtfPath == "" {
		p, ok := FindGENCODEGTF(opts.assembly)
		if !ok {
			return nil, "", fmt.Errorf("no GENCODE GTF found for %s; run: vibe-splice download --assembly %s, or pass --gtf",
				opts.assembly, opts.assembly)
		}
		gtfPath = p
	}

	c, err := loadGeneModel(gtfPath, opts, logger)
	if err != nil {
		return nil, "", err
	}

	var genes []*cache.Gene
	if region != nil {
		genes = c.FindGenes(region.chrom, region.start, region.end)
	} else {
		genes = c.Genes()
	}
	logger.Info("loaded gene model",
		zap.String("gtf", gtfPath),
		zap.Int("genes", len(genes)),
		zap.Int("transcripts", c.TranscriptCount()))
	return event.FromCacheAll(genes), gtfPath, nil
}

// loadModel reads a JSON gene dictionary, optionally keeping one chromosome.
func loadModel(path, chrom string) ([]*event.Gene, error) {
	f, err := cache.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open gene model: %w", err)
	}
	defer f.Close()

	genes, err := event.ReadGeneModel(f)
	if err != nil {
		return nil, err
	}
	if chrom == "" {
		return genes, nil
	}

	want := cache.NormalizeChrom(chrom)
	kept := genes[:0]
	for _, g := range genes {
		if cache.NormalizeChrom(g.Chrom) == want {
			kept = append(kept, g)
		}
	}
	return kept, nil
}

// loadGeneModel parses a GTF, reusing the gob cache when the GTF and load
// options are unchanged. With noCache the cache is removed instead.
func loadGeneModel(gtfPath string, opts classifyOptions, logger *zap.Logger) (*cache.Cache, error) {
	c := cache.New()
	loader := cache.NewGTFLoader(gtfPath)
	loader.SetBiotypes(opts.biotypes)
	load := func() error {
		if opts.chrom != "" {
			return loader.LoadChromosome(c, opts.chrom)
		}
		return loader.Load(c)
	}

	gc := duckdb.NewGeneModelCache(opts.cacheDir, gtfPath)
	if opts.noCache {
		if err := load(); err != nil {
			return nil, err
		}
		gc.Clear()
		logger.Debug("removed gene model cache", zap.String("gtf", gtfPath))
		return c, nil
	}

	fp, err := duckdb.StatFile(gtfPath)
	if err != nil {
		return nil, fmt.Errorf("stat GTF file: %w", err)
	}
	key := loadOptionsKey(opts.chrom, opts.biotypes)

	if gc.Valid(fp, key) {
		err := gc.Load(c)
		if err == nil {
			logger.Debug("loaded gene model from cache", zap.String("gtf", gtfPath))
			return c, nil
		}
		logger.Warn("gene model cache unreadable, reparsing GTF", zap.Error(err))
		c = cache.New()
	}

	if err := load(); err != nil {
		return nil, err
	}
	if err := gc.Write(c, fp, key); err != nil {
		logger.Warn("could not write gene model cache", zap.Error(err))
	}
	return c, nil
}

// loadOptionsKey identifies the GTF load filters so that a cache built with
// different filters is not reused.
func loadOptionsKey(chrom string, biotypes []string) string {
	sorted := append([]string(nil), biotypes...)
	sort.Strings(sorted)
	return "chrom=" + cache.NormalizeChrom(chrom) + ";biotypes=" + strings.Join(sorted, ",")
}

// genomicRegion is a 1-based inclusive interval on one chromosome.
type genomicRegion struct {
	chrom      string
	start, end int64
}

// parseRegion parses "chrom:start-end". Thousands separators are allowed.
func parseRegion(s string) (genomicRegion, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		return genomicRegion{}, fmt.Errorf("invalid region %q: expected chrom:start-end", s)
	}
	startStr, endStr, ok := strings.Cut(strings.ReplaceAll(s[idx+1:], ",", ""), "-")
	if !ok {
		return genomicRegion{}, fmt.Errorf("invalid region %q: expected chrom:start-end", s)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return genomicRegion{}, fmt.Errorf("invalid region start %q: %w", startStr, err)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return genomicRegion{}, fmt.Errorf("invalid region end %q: %w", endStr, err)
	}
	if start < 1 || start > end {
		return genomicRegion{}, fmt.Errorf("invalid region %q: start must be in 1..end", s)
	}
	return genomicRegion{chrom: s[:idx], start: start, end: end}, nil
}
