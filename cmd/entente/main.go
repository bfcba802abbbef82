// entente CLI - spec-driven mock server and passive contract interceptor.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cliftonc/entente/pkg/config"
	"github.com/cliftonc/entente/pkg/fixture"
	"github.com/cliftonc/entente/pkg/interceptor"
	"github.com/cliftonc/entente/pkg/logging"
	"github.com/cliftonc/entente/pkg/recorder"
	"github.com/cliftonc/entente/pkg/router"
	"github.com/cliftonc/entente/pkg/server"
	"github.com/cliftonc/entente/pkg/spec"
	"github.com/cliftonc/entente/pkg/spec/asyncapi"
	"github.com/cliftonc/entente/pkg/spec/graphql"
	"github.com/cliftonc/entente/pkg/spec/openapi"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags shared by serve and intercept, overriding the config file.
type rootFlags struct {
	configPath string
	specPath   string
	fixtures   []string
	service    string
	port       int
	upstream   string
	broker     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "entente",
		Short:         "Spec-driven mock server and contract interceptor",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to config file (yaml or json)")
	pf.StringVar(&flags.specPath, "spec", "", "path to the service spec (openapi, graphql, or asyncapi)")
	pf.StringArrayVar(&flags.fixtures, "fixtures", nil, "fixture file to load (repeatable)")
	pf.StringVar(&flags.service, "service", "", "service name")
	pf.StringVar(&flags.broker, "broker", "", "broker base URL to upload interactions to")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newServeCmd(flags), newInterceptCmd(flags))
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve mock responses from a spec and fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "port to listen on")
	return cmd
}

func newInterceptCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intercept",
		Short: "Passively proxy a real service and record contract traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntercept(cmd.Context(), flags)
		},
	}
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "port to listen on")
	cmd.Flags().StringVar(&flags.upstream, "upstream", "", "upstream base URL to forward to")
	return cmd
}

// loadConfig merges the config file (if any) with flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.specPath != "" {
		cfg.Spec = flags.specPath
	}
	if flags.service != "" {
		cfg.Service = flags.service
	}
	if len(flags.fixtures) > 0 {
		cfg.Fixtures = flags.fixtures
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.upstream != "" {
		cfg.Interceptor.Upstream = flags.upstream
	}
	if flags.broker != "" {
		cfg.Recorder.Endpoint = flags.broker
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	return cfg, cfg.Validate()
}

// buildRouter parses the spec file and loads every fixture file.
func buildRouter(cfg *config.Config, log *slog.Logger) (*router.Router, error) {
	registry, err := spec.NewRegistry(openapi.New(), graphql.New(), asyncapi.New())
	if err != nil {
		return nil, err
	}
	rt := router.New(registry, log)

	raw, err := os.ReadFile(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("read spec %s: %w", cfg.Spec, err)
	}
	if err := rt.LoadSpec(raw); err != nil {
		return nil, err
	}

	for _, path := range cfg.Fixtures {
		pool, err := fixture.LoadFile(path)
		if err != nil {
			return nil, err
		}
		rt.AddFixtures(pool...)
		log.Info("fixtures loaded", "path", path, "count", len(pool))
	}
	return rt, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})
}

// newRecorder builds the broker client, or nil when no endpoint is set.
func newRecorder(cfg *config.Config, log *slog.Logger) *recorder.Client {
	if cfg.Recorder.Endpoint == "" {
		return nil
	}
	return recorder.NewClient(cfg.Recorder.Endpoint,
		recorder.WithBatchSize(cfg.Recorder.BatchSize),
		recorder.WithFlushInterval(cfg.Recorder.FlushIntervalDuration()),
		recorder.WithLogger(log),
	)
}

func runServe(ctx context.Context, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	rt, err := buildRouter(cfg, log)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(log)}
	rec := newRecorder(cfg, log)
	if rec != nil {
		defer func() { _ = rec.Close() }()
		opts = append(opts, server.WithRecorder(rec))
	}

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Service:      cfg.Service,
		Consumer:     cfg.Consumer,
		Version:      cfg.Version,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, rt, opts...)

	if err := srv.Start(); err != nil {
		return err
	}
	waitForShutdown(ctx, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runIntercept(ctx context.Context, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cfg.Interceptor.Upstream == "" {
		return fmt.Errorf("intercept: upstream is required (flag --upstream or config interceptor.upstream)")
	}
	log := newLogger(cfg)

	rt, err := buildRouter(cfg, log)
	if err != nil {
		return err
	}

	opts := []interceptor.Option{interceptor.WithLogger(log)}
	rec := newRecorder(cfg, log)
	if rec != nil {
		defer func() { _ = rec.Close() }()
		opts = append(opts, interceptor.WithRecorder(rec))
	}

	i, err := interceptor.New(interceptor.Config{
		Upstream:        cfg.Interceptor.Upstream,
		Service:         cfg.Service,
		Consumer:        cfg.Consumer,
		Version:         cfg.Version,
		ProposeFixtures: cfg.Interceptor.ProposeFixtures,
	}, rt, opts...)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           i,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("interceptor listening", "addr", httpSrv.Addr, "upstream", cfg.Interceptor.Upstream)

	select {
	case err := <-errCh:
		return err
	case <-shutdownSignal(ctx):
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func waitForShutdown(ctx context.Context, log *slog.Logger) {
	<-shutdownSignal(ctx)
	log.Info("shutting down")
}

// shutdownSignal fires on SIGINT/SIGTERM or context cancellation.
func shutdownSignal(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		close(done)
	}()
	return done
}
