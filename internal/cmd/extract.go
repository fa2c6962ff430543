package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/config"
	"github.com/maid-docs/maid/internal/emit"
	"github.com/maid-docs/maid/internal/extract"
	"github.com/maid-docs/maid/internal/pipeline"
	"github.com/maid-docs/maid/internal/resolve"
	"github.com/maid-docs/maid/internal/symbol"
	"github.com/maid-docs/maid/internal/watch"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [project...]",
	Short: "Extract documentation sets from projects",
	Long: `Extract one document set per project and write the emitted units.

A project is a directory, a .csproj file or, with the symbols provider, a
directory of *.symbols.json descriptor files. Without arguments the projects
listed in .maid/config.yaml are extracted.

A project that fails to load is reported and the others still complete. The
command fails only when every project failed.

Output:
  <out>/<docId>.json      one unit per document set (--group docset)
  <out>/<namespace>.json  one unit per namespace (--group namespace)
  <out>/summary.json      per-set counts of members and diagnostics`,
	Example: `  maid extract
  maid extract src/Shop src/Admin --out build/api
  maid extract --provider symbols exported/ --format yaml
  maid extract --watch -v`,
	RunE: runExtract,
}

var extractFlags struct {
	out       string
	format    string
	group     string
	provider  string
	workers   int
	noCatalog bool
	watch     bool
}

func init() {
	rootCmd.AddCommand(extractCmd)

	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.out, "out", "o", "", "Output directory (default: output.dir from config)")
	f.StringVar(&extractFlags.format, "format", "", "Unit format: json | yaml")
	f.StringVar(&extractFlags.group, "group", "", "Unit grouping: docset | namespace")
	f.StringVar(&extractFlags.provider, "provider", "", "Symbol provider: csharp | symbols")
	f.IntVar(&extractFlags.workers, "workers", 0, "Concurrency bound (0: one per CPU)")
	f.BoolVar(&extractFlags.noCatalog, "no-catalog", false, "Neither read nor update the catalog")
	f.BoolVar(&extractFlags.watch, "watch", false, "Re-extract when sources change")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	cwd, _ := os.Getwd()
	if err := applyExtractFlags(ws, cmd, cwd, args); err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex, err := newExtraction(ws, log, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer ex.Close()

	err = ex.Run(ctx)
	if !extractFlags.watch {
		return err
	}
	if err != nil {
		log.Error("extraction failed; waiting for changes", zap.Error(err))
	}

	roots := make([]string, len(ws.cfg.Projects))
	for i, p := range ws.cfg.Projects {
		roots[i] = ws.path(p)
	}
	w, err := watch.New(roots, watch.Options{Exclude: ws.cfg.Extract.Exclude, Logger: log})
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "Watching for changes (Ctrl-C to stop)")
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		return ex.Run(ctx)
	})
}

// applyExtractFlags overrides config values with the flags that were set.
// Paths given on the command line are relative to cwd.
func applyExtractFlags(ws *workspace, cmd *cobra.Command, cwd string, args []string) error {
	flags := cmd.Flags()
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cwd, p)
	}
	if len(args) > 0 {
		ws.cfg.Projects = make([]string, len(args))
		for i, a := range args {
			ws.cfg.Projects[i] = abs(a)
		}
	}
	if flags.Changed("out") {
		ws.cfg.Output.Dir = abs(extractFlags.out)
	}
	if flags.Changed("format") {
		ws.cfg.Output.Format = extractFlags.format
	}
	if flags.Changed("group") {
		ws.cfg.Output.Grouping = extractFlags.group
	}
	if flags.Changed("provider") {
		ws.cfg.Provider = extractFlags.provider
	}
	if flags.Changed("workers") {
		ws.cfg.Extract.Workers = extractFlags.workers
	}
	if extractFlags.noCatalog {
		off := false
		ws.cfg.Catalog.Enabled = &off
	}
	return config.Validate(ws.cfg)
}

// extraction runs the pipeline, emits units and updates the catalog. It can
// be run repeatedly, as watch mode does.
type extraction struct {
	ws       *workspace
	pipeline *pipeline.Pipeline
	emitter  *emit.Emitter
	catalog  *catalog.Catalog
	log      *zap.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func newExtraction(ws *workspace, log *zap.Logger, stdout, stderr io.Writer) (*extraction, error) {
	cfg := ws.cfg
	format, err := emit.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	grouping, err := emit.ParseGrouping(cfg.Output.Grouping)
	if err != nil {
		return nil, err
	}

	ex := &extraction{ws: ws, log: log, stdout: stdout, stderr: stderr}
	opts := pipeline.Options{
		Provider: newProvider(cfg, log),
		External: resolve.NewCatalog(cfg.External),
		Workers:  cfg.Extract.Workers,
		Logger:   log,
	}
	if cfg.Catalog.IsEnabled() {
		ex.catalog, err = catalog.Open(ws.catalogPath())
		if err != nil {
			return nil, err
		}
		opts.Known = ex.catalog
	}

	ex.pipeline, err = pipeline.New(opts)
	if err != nil {
		ex.Close()
		return nil, err
	}
	ex.emitter = emit.New(emit.Options{
		Dir:      ws.path(cfg.Output.Dir),
		Format:   format,
		Grouping: grouping,
		Workers:  cfg.Extract.Workers,
		Logger:   log,
	})
	return ex, nil
}

func newProvider(cfg *config.Config, log *zap.Logger) symbol.Provider {
	if cfg.Provider == config.ProviderSymbols {
		return symbol.NewJSONProvider()
	}
	return extract.NewProvider(extract.Options{
		Workers: cfg.Extract.Workers,
		Exclude: cfg.Extract.Exclude,
		Logger:  log,
	})
}

// Close releases the catalog.
func (ex *extraction) Close() error {
	if ex.catalog == nil {
		return nil
	}
	return ex.catalog.Close()
}

// Run performs one extraction.
func (ex *extraction) Run(ctx context.Context) error {
	projects := make([]string, len(ex.ws.cfg.Projects))
	for i, p := range ex.ws.cfg.Projects {
		projects[i] = ex.ws.path(p)
	}

	var run *catalog.Run
	if ex.catalog != nil {
		var err error
		if run, err = ex.catalog.BeginRun(ctx); err != nil {
			return err
		}
	}

	res, err := ex.pipeline.Run(ctx, projects)
	if err != nil {
		return err
	}

	paths, err := ex.emitter.Emit(ctx, res.Sets)
	if err != nil {
		return err
	}
	summaryPath, err := ex.emitter.WriteSummary(res.Summary)
	if err != nil {
		return err
	}
	ex.log.Info("wrote units", zap.Int("units", len(paths)), zap.String("summary", summaryPath))

	if ex.catalog != nil {
		for _, set := range res.Sets {
			if err := ex.catalog.Save(ctx, run, set); err != nil {
				return err
			}
		}
		if err := ex.catalog.FinishRun(ctx, run); err != nil {
			return err
		}
	}

	printSummary(ex.stdout, ex.stderr, res.Summary)
	if len(res.Sets) == 0 && len(res.Failures) > 0 {
		return errors.Newf("all %d projects failed", len(res.Failures))
	}
	return nil
}

func printSummary(stdout, stderr io.Writer, s pipeline.Summary) {
	for _, set := range s.Sets {
		fmt.Fprintf(stdout, "%s: %d members, %d skipped, %d unresolved, %d warnings\n",
			set.DocID, set.Members, set.Skipped, set.Unresolved, set.Warnings())
	}
	for _, f := range s.Failed {
		fmt.Fprintf(stderr, "failed %s: %s\n", f.Project, f.Error)
	}
}
