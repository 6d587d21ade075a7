// Command preview runs the email column analysis on local files and prints
// the inferred column with its sample addresses.
//
//	preview [flags] file...
//
// Files are analyzed concurrently; results are printed in argument order.
// A file named "-" is read from standard input, at most once per run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/emailpreview/internal/config"
	"github.com/JonMunkholm/emailpreview/internal/core"
	"github.com/JonMunkholm/emailpreview/internal/logging"
	"github.com/JonMunkholm/emailpreview/internal/store"
)

type options struct {
	column   int
	rows     int
	prefix   int64
	sample   int
	workers  int
	asJSON   bool
	sqlite   string
	logLevel string
}

// fileResult is one file's outcome. Err is set instead of Mapping when the
// file could not be previewed.
type fileResult struct {
	Path    string              `json:"path"`
	Header  bool                `json:"headerPresent"`
	Columns int                 `json:"columns"`
	Scores  []core.ColumnScore  `json:"scores,omitempty"`
	Mapping *core.MappingResult `json:"mapping,omitempty"`
	Err     string              `json:"error,omitempty"`

	// Detail carries the underlying error when it has no specific message.
	Detail string `json:"detail,omitempty"`
}

// stdinName is the argument that selects standard input.
const stdinName = "-"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.IntVar(&opts.column, "column", -1, "column to confirm instead of the inferred one")
	fs.IntVar(&opts.rows, "rows", core.DefaultMaxPreviewRows, "maximum preview rows")
	fs.Int64Var(&opts.prefix, "prefix", core.DefaultPrefixBytes, "bytes read from the start of each file")
	fs.IntVar(&opts.sample, "sample", core.DefaultMaxSampleEmails, "maximum sample emails per file")
	fs.IntVar(&opts.workers, "workers", 4, "files analyzed at once")
	fs.BoolVar(&opts.asJSON, "json", false, "print one JSON object per file")
	fs.StringVar(&opts.sqlite, "sqlite", "", "record confirmed mappings in this SQLite file")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: preview [flags] file...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if opts.workers <= 0 {
		opts.workers = 1
	}

	paths := fs.Args()
	sources := make([]core.Source, len(paths))
	for i, path := range paths {
		if path != stdinName {
			sources[i] = core.FileSource{Path: path}
			continue
		}
		if slices.Contains(paths[:i], stdinName) {
			fmt.Fprintln(stderr, "preview: standard input given more than once")
			return 2
		}
		sources[i] = core.NewReaderSource("stdin", stdin)
	}

	slog.SetDefault(logging.New(stderr, opts.logLevel, "text"))

	var st store.Store
	if opts.sqlite != "" {
		var err error
		st, err = store.Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, SQLitePath: opts.sqlite})
		if err != nil {
			fmt.Fprintf(stderr, "preview: %v\n", err)
			return 1
		}
		defer st.Close()
	}
	sink := core.SinkFunc(func(ctx context.Context, m core.ConfirmedMapping) error {
		slog.Info("mapping confirmed",
			"source", m.Source,
			"column", m.Result.ColumnIndex,
			"samples", len(m.Result.PreviewEmails),
		)
		if st == nil {
			return nil
		}
		return st.DeliverMapping(ctx, m)
	})

	cfg := core.PreviewConfig{
		MaxPreviewRows:  opts.rows,
		PrefixBytes:     opts.prefix,
		MaxSampleEmails: opts.sample,
		Patterns:        core.DefaultPatterns(),
	}

	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i, path := range paths {
		g.Go(func() error {
			res, err := previewFile(gctx, path, sources[i], cfg, sink, opts.column)
			if err != nil {
				// Per-file failures are reported, not fatal.
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return err
				}
				res.Err = core.FormatUserError(err)
				if !core.IsUserFacing(err) {
					res.Detail = err.Error()
				}
				slog.Debug("preview failed", "path", path, "error", err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(stderr, "preview: %v\n", err)
		return 1
	}

	failed := 0
	for _, res := range results {
		if res.Err != "" {
			failed++
		}
		if opts.asJSON {
			if err := json.NewEncoder(stdout).Encode(res); err != nil {
				fmt.Fprintf(stderr, "preview: %v\n", err)
				return 1
			}
			continue
		}
		printResult(stdout, res)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

// previewFile loads one source into its own session and confirms the chosen
// column.
func previewFile(ctx context.Context, path string, src core.Source, cfg core.PreviewConfig, sink core.MappingSink, column int) (fileResult, error) {
	res := fileResult{Path: path}

	sess := core.NewSession("cli:"+path, cfg, sink)
	defer sess.Close()

	load := sess.LoadSource(ctx, src)
	if err := load.Wait(ctx); err != nil {
		return res, err
	}

	snap := sess.Snapshot()
	if snap.Phase == core.PhaseError {
		return res, errors.New(snap.Error)
	}
	res.Header = snap.State.HeaderPresent
	res.Columns = snap.State.ColumnCount()
	res.Scores = snap.State.Scores

	if column >= 0 {
		if err := sess.SelectColumn(column); err != nil {
			return res, err
		}
	}

	mapping, err := sess.Confirm(ctx)
	if err != nil {
		return res, err
	}
	res.Mapping = &mapping
	return res, nil
}

func printResult(w io.Writer, res fileResult) {
	if res.Err != "" {
		fmt.Fprintf(w, "%s: %s\n", res.Path, res.Err)
		if res.Detail != "" {
			fmt.Fprintf(w, "  %s\n", res.Detail)
		}
		return
	}

	header := res.Mapping.Header
	if header == "" {
		header = "(no header)"
	}
	fmt.Fprintf(w, "%s: column %d %s\n", res.Path, res.Mapping.ColumnIndex, header)
	if len(res.Mapping.PreviewEmails) == 0 {
		fmt.Fprintln(w, "  (no values)")
		return
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(res.Mapping.PreviewEmails, "\n  "))
}
