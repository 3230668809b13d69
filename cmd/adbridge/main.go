// Command adbridge locates adb and runs it, directly or as an MCP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/deixis/adbridge"
	"github.com/deixis/adbridge/internal/config"
	adbmcp "github.com/deixis/adbridge/internal/mcp"
	"github.com/deixis/adbridge/internal/report"
	"github.com/deixis/adbridge/internal/runner"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var (
		code int
		err  error
	)
	switch cmd {
	case "which":
		err = whichMain(args)
	case "exec":
		code, err = execMain(args)
	case "exec-out":
		code, err = execOutMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(adbridge.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "adbridge: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: adbridge <command> [flags] [-- adb arguments]

Commands:
  which       Print the adb executable that will be used
  exec        Run adb with the given arguments
  exec-out    Run "adb exec-out" and copy its raw output
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "adbridge <command> -h" for command-specific flags.`)
}

// --- which ---

func whichMain(args []string) error {
	fs := flag.NewFlagSet("which", flag.ExitOnError)
	prebuilt := fs.String("prebuilt", "", "override the prebuilt binaries directory")
	_ = fs.Parse(args)

	r, _, err := newRunner(*prebuilt)
	if err != nil {
		return err
	}
	fmt.Println(r.Executable(context.Background()))
	return nil
}

// --- exec ---

func execMain(args []string) (int, error) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	prebuilt := fs.String("prebuilt", "", "override the prebuilt binaries directory")
	check := fs.Bool("check", false, "report a nonzero exit or signal as an error")
	_ = fs.Parse(args)

	r, _, err := newRunner(*prebuilt)
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var res *runner.Result
	if *check {
		res, err = r.ExecOrFail(ctx, fs.Args())
	} else {
		res, err = r.Exec(ctx, fs.Args())
	}
	if err != nil {
		return 0, err
	}
	return relay(res)
}

// --- exec-out ---

func execOutMain(args []string) (int, error) {
	fs := flag.NewFlagSet("exec-out", flag.ExitOnError)
	prebuilt := fs.String("prebuilt", "", "override the prebuilt binaries directory")
	check := fs.Bool("check", false, "report a nonzero exit or signal as an error")
	output := fs.String("o", "", "write stdout to this file instead of standard output")
	encoding := fs.String("encoding", "", "capture mode: buffer (default) or utf8")
	_ = fs.Parse(args)

	opts := runner.Options{Encoding: runner.Encoding(*encoding)}
	switch opts.Encoding {
	case "", runner.EncodingRaw, runner.EncodingText:
	default:
		return 0, fmt.Errorf("unknown encoding %q", *encoding)
	}

	r, _, err := newRunner(*prebuilt)
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var res *runner.Result
	if *check {
		res, err = r.ExecOutOrFail(ctx, fs.Args(), opts)
	} else {
		res, err = r.ExecOut(ctx, fs.Args(), opts)
	}
	if err != nil {
		return 0, err
	}

	if *output != "" {
		if err := os.WriteFile(*output, res.Stdout, 0o644); err != nil {
			return 0, fmt.Errorf("writing %s: %w", *output, err)
		}
		res.Stdout = nil
	}
	return relay(res)
}

// relay copies captured output through and maps the termination state to
// an exit code for this process.
func relay(res *runner.Result) (int, error) {
	if _, err := os.Stdout.Write(res.Stdout); err != nil {
		return 0, err
	}
	if _, err := os.Stderr.Write(res.Stderr); err != nil {
		return 0, err
	}
	if code, ok := res.Code(); ok {
		return code, nil
	}
	log.WithFields(log.Fields{"run_id": res.RunID, "signal": res.Signal}).Warn("adb was killed")
	return 1, nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	prebuilt := fs.String("prebuilt", "", "override the prebuilt binaries directory")
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(adbmcp.Instructions)
		return nil
	}

	r, cfg, err := newRunner(*prebuilt)
	if err != nil {
		return err
	}
	store := report.NewLRUStore(cfg.HistorySize(), report.NewDiskStore(cfg.History.Dir))
	server := adbmcp.NewServer(cfg, r, store, adbmcp.WithLogger(log.NewEntry(log.StandardLogger())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Infof("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

// newRunner loads .adbridge from the working directory upward and builds
// a Runner from it.
func newRunner(prebuiltOverride string) (*runner.Runner, *config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("determining working directory: %w", err)
	}

	loaded, err := config.Load(wd)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	if level, err := log.ParseLevel(cfg.Level()); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("invalid log level %s, defaulting to info", cfg.Level())
	}
	if loaded.Path != "" {
		log.WithField("path", loaded.Path).Debug("loaded config")
	}

	r := runner.New(cfg.PrebuiltDir)
	if prebuiltOverride != "" {
		r.PrebuiltDir = prebuiltOverride
	}
	if cfg.Platform != "" {
		r.Platform = cfg.Platform
	}
	return r, cfg, nil
}
