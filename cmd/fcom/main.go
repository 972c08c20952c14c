// Command fcom is the command-line front end: it resolves the first
// positional argument to an operation via registry.Registry, expands the
// remaining arguments into a file list via pathiter, and fans the work
// out across workerpool.Pool, one job per input file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gofcom/fcom/config"
	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/hooks"
	"github.com/gofcom/fcom/ops"
	"github.com/gofcom/fcom/pathiter"
	"github.com/gofcom/fcom/registry"
	"github.com/gofcom/fcom/workerpool"
)

// options collects every flag the CLI understands across all operations.
// Not every operation consults every field; unused ones are simply
// ignored, matching the original's single shared getopt table.
type options struct {
	debug   bool
	verbose bool

	recurse bool
	include []string
	exclude []string
	outDir  string
	output  string
	dryRun  bool

	password string
	format   string
	htmlAttr []string
	codepage string

	configPath string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	var opt options

	root := &cobra.Command{
		Use:                "fcom <operation> [paths...]",
		Short:              "fcom performs bulk file operations through a streaming filter pipeline",
		SilenceUsage:       true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dispatch(argv, &opt)
		},
	}
	root.SetArgs(argv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fcom:", err)
		return 1
	}
	return exitCode
}

// exitCode lets dispatch report a non-zero status without cobra
// swallowing it through RunE's error (errors already get logged inline
// as each job completes, not surfaced as one final error object).
var exitCode int

func dispatch(argv []string, opt *options) error {
	flags := pflag.NewFlagSet("fcom", pflag.ContinueOnError)
	flags.BoolVarP(&opt.debug, "debug", "D", false, "enable debug logging")
	flags.BoolVarP(&opt.verbose, "verbose", "V", false, "enable verbose (info) logging")
	flags.BoolVarP(&opt.recurse, "recurse", "r", false, "recurse into directories")
	flags.StringSliceVar(&opt.include, "include", nil, "include only files matching this wildcard (repeatable)")
	flags.StringSliceVar(&opt.exclude, "exclude", nil, "exclude files matching this wildcard (repeatable)")
	flags.StringVar(&opt.outDir, "outdir", "", "destination directory for extract operations")
	flags.StringVarP(&opt.output, "output", "o", "", "destination file for single-output operations")
	flags.BoolVar(&opt.dryRun, "dry-run", false, "discard output instead of writing it")
	flags.StringVarP(&opt.password, "password", "p", "", "password for encrypt/decrypt/encryptverify")
	flags.StringVarP(&opt.format, "format", "f", "", "target format for image convert/crop")
	flags.StringSliceVar(&opt.htmlAttr, "filter", nil, "tag.attr filter for html extraction (repeatable)")
	flags.StringVar(&opt.codepage, "codepage", "", "fallback codepage for utf8 transcoding")
	flags.StringVar(&opt.configPath, "config", "", "path to fcom.toml (defaults to the platform config dir)")
	flags.Usage = func() {}

	if err := flags.Parse(argv); err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: fcom <operation> [paths...]")
	}
	opName, paths := rest[0], rest[1:]

	logLevel := slog.LevelWarn
	switch {
	case opt.debug:
		logLevel = slog.LevelDebug
	case opt.verbose:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfgPath := opt.configPath
	if cfgPath == "" {
		if p, err := config.DefaultPath(); err == nil {
			cfgPath = p
		}
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return err
	}
	if opt.codepage == "" {
		opt.codepage = cfg.Codepage
	}

	reg := registry.New()
	ops.Register(reg)

	tmpl, err := reg.Resolve(opName)
	if err != nil {
		return err
	}

	sched := core.NewScheduler(hooks.NewSlogLogger(logger), hooks.NewLoggingHook(hooks.NewSlogLogger(logger)))
	pool := workerpool.New(sched, config.ResolvedWorkers(cfg), cfg.QueueSize)
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigc; ok {
			pool.SignalAll(core.SigInterrupt)
			cancel()
		}
	}()

	failed := runOperation(ctx, opName, paths, opt, tmpl, pool)
	if failed {
		exitCode = 1
	}
	return nil
}

// runOperation submits one job per input file (or a single job for
// whole-tree operations like sync/list/touch that take the raw path
// arguments directly) and reports whether any job failed.
func runOperation(ctx context.Context, opName string, paths []string, opt *options, tmpl *core.PipelineTemplate, pool *workerpool.Pool) bool {
	switch canonicalModule(opName) {
	case "fs", "sync":
		return submitWhole(ctx, opName, paths, opt, tmpl, pool)
	case "arc":
		if isContainerWrite(opName) {
			return submitContainerPack(ctx, opName, paths, opt, tmpl, pool)
		}
		if isContainerRead(opName) {
			return submitWhole(ctx, opName, paths, opt, tmpl, pool)
		}
		return submitPerFile(ctx, opName, paths, opt, tmpl, pool)
	default:
		return submitPerFile(ctx, opName, paths, opt, tmpl, pool)
	}
}

func canonicalModule(opName string) string {
	full := opName
	if m, ok := registry.StandardAliases()[opName]; ok {
		full = m
	}
	if i := strings.IndexByte(full, '.'); i >= 0 {
		return full[:i]
	}
	switch opName {
	case "md5", "sha256", "crc32", "hex", "encrypt", "decrypt", "encryptverify":
		return "crypto"
	case "utf8", "html", "stats":
		return "text"
	case "convert", "crop":
		return "image"
	case "list", "touch":
		return "fs"
	case "sync":
		return "sync"
	case "gz", "xz", "zst", "zip", "tar":
		return "arc"
	default:
		return ""
	}
}

func isContainerWrite(opName string) bool { return opName == "zip" || opName == "tar" || opName == "arc.zip" || opName == "arc.tar" }
func isContainerRead(opName string) bool {
	switch opName {
	case "unzip", "untar", "uniso", "un7z", "arc.unzip", "arc.untar", "arc.uniso", "arc.un7z":
		return true
	}
	return false
}

// submitPerFile expands paths via pathiter and submits one job per file,
// deriving each job's output name from --output (single input) or from
// the input name with a new extension (batch).
func submitPerFile(ctx context.Context, opName string, paths []string, opt *options, tmpl *core.PipelineTemplate, pool *workerpool.Pool) bool {
	files := expand(paths, opt)

	var failed atomic.Bool
	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		file := file
		cmd := core.NewCmd(ctx, opName)
		cmd.Input.Name = file
		cmd.Output.Name = outputNameFor(opName, file, opt, len(files) == 1)
		cmd.DryRun = opt.dryRun
		cmd.Params = operationParams(opName, opt)

		done := make(chan core.Result, 1)
		pool.Submit(workerpool.Job{Template: tmpl, Cmd: cmd, Done: done})
		go func() {
			defer wg.Done()
			res := <-done
			if res.Err != nil {
				failed.Store(true)
				fmt.Fprintf(os.Stderr, "fcom: %s: %s: %v\n", opName, file, res.Err)
			}
		}()
	}
	wg.Wait()
	return failed.Load()
}

// submitWhole submits a single job that consumes the raw path arguments
// itself (list, touch, sync) rather than one job per expanded file.
func submitWhole(ctx context.Context, opName string, paths []string, opt *options, tmpl *core.PipelineTemplate, pool *workerpool.Pool) bool {
	cmd := core.NewCmd(ctx, opName)
	cmd.Recurse = opt.recurse
	cmd.IncludeFiles = opt.include
	cmd.ExcludeFiles = opt.exclude
	cmd.OutDir = opt.outDir
	cmd.Params = operationParams(opName, opt, paths...)

	if isContainerRead(opName) && len(paths) > 0 {
		cmd.Input.Name = paths[0]
	}

	done := make(chan core.Result, 1)
	pool.Submit(workerpool.Job{Template: tmpl, Cmd: cmd, Done: done})
	res := <-done
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "fcom: %s: %v\n", opName, res.Err)
		return true
	}
	return false
}

// submitContainerPack runs a single job whose archive writer filter
// walks Cmd.Vars["zip.entries"]/["tar.entries"] itself.
func submitContainerPack(ctx context.Context, opName string, paths []string, opt *options, tmpl *core.PipelineTemplate, pool *workerpool.Pool) bool {
	cmd := core.NewCmd(ctx, opName)
	cmd.Output.Name = opt.output
	if cmd.Output.Name == "" {
		cmd.Output.Name = "out." + opName
	}
	key := "zip.entries"
	if opName == "tar" || opName == "arc.tar" {
		key = "tar.entries"
	}
	cmd.Vars[key] = expand(paths, opt)

	done := make(chan core.Result, 1)
	pool.Submit(workerpool.Job{Template: tmpl, Cmd: cmd, Done: done})
	res := <-done
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "fcom: %s: %v\n", opName, res.Err)
		return true
	}
	return false
}

// expand walks paths through pathiter, applying --recurse/--include/
// --exclude, and returns the file (non-directory) results.
func expand(paths []string, opt *options) []string {
	it := pathiter.New(pathiter.Options{
		Recurse:      opt.recurse,
		IncludeFiles: opt.include,
		ExcludeFiles: opt.exclude,
	})
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		it.Push(p)
	}
	var out []string
	for {
		e, ok, err := it.Next(pathiter.NextFlags{FilesOnly: true})
		if err != nil || !ok {
			break
		}
		out = append(out, e.Path)
	}
	return out
}

// outputNameFor derives a per-file output name: --output/-o when given
// and only one file is in play, otherwise the input name with its
// extension swapped for the operation's natural one.
func outputNameFor(opName, input string, opt *options, single bool) string {
	if opt.output != "" && single {
		return opt.output
	}
	ext := defaultExt(opName)
	if ext == "" {
		return input
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func defaultExt(opName string) string {
	switch opName {
	case "gz", "arc.gz":
		return ".gz"
	case "xz", "arc.xz":
		return ".xz"
	case "zst", "arc.zst":
		return ".zst"
	case "ungz", "arc.ungz", "unxz", "arc.unxz", "unzst", "arc.unzst":
		return ""
	case "encrypt", "crypto.encrypt":
		return ".enc"
	case "decrypt", "crypto.decrypt":
		return ".dec"
	case "encryptverify", "crypto.encryptverify":
		return ".enc"
	case "utf8", "text.utf8":
		return ""
	case "convert", "image.convert", "crop", "image.crop":
		return ""
	default:
		return ""
	}
}

// operationParams builds the Cmd.Params value each module expects,
// reading the flags relevant to opName and ignoring the rest.
func operationParams(opName string, opt *options, rawArgs ...string) any {
	switch canonicalModule(opName) {
	case "crypto":
		return ops.CryptoParams{Password: opt.password}
	case "text":
		return ops.TextParams{Codepage: opt.codepage, HTMLFilters: opt.htmlAttr}
	case "image":
		return ops.ImageParams{Format: opt.format}
	case "fs":
		return ops.FSParams{Args: rawArgs, Recurse: opt.recurse, IncludeFiles: opt.include, ExcludeFiles: opt.exclude}
	case "sync":
		sp := ops.SyncParams{}
		if len(rawArgs) > 0 {
			sp.Left = rawArgs[0]
		}
		if len(rawArgs) > 1 {
			sp.Right = rawArgs[1]
		}
		if opt.output != "" {
			sp.SnapshotOut = opt.output
		}
		return sp
	default:
		return nil
	}
}
