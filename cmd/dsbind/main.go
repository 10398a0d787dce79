// Command dsbind binds the configured data sources in a container, checks they are reachable, and optionally serves
// their pool metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-peyrard/godi-datasource"
	"github.com/a-peyrard/godi-datasource/config"
	"github.com/a-peyrard/godi-datasource/inject"
	"github.com/a-peyrard/godi-datasource/metrics"
	"github.com/a-peyrard/godi-datasource/option"
	"github.com/a-peyrard/godi-datasource/pgxsource"
	"github.com/a-peyrard/godi-datasource/runner"
	"github.com/a-peyrard/godi-datasource/sqlsource"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type (
	options struct {
		configFile   string
		envPrefix    string
		listen       string
		driverFamily string
		verify       bool
		names        []string
	}

	// configSource is what both configuration loaders offer.
	configSource interface {
		Module() inject.Module
	}
)

func NewGlobalLogLevel() (zerolog.Level, error) {
	levelFromEnv := os.Getenv("LOG_LEVEL")
	if levelFromEnv == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelFromEnv))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %s: %w", levelFromEnv, err)
	}
	return level, nil
}

func NewLogger(level zerolog.Level) *zerolog.Logger {
	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &logger
}

func parseOptions(args []string) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("dsbind", pflag.ContinueOnError)
	flags.StringVarP(&opts.configFile, "config", "c", "", "configuration file (yaml, toml, json or hcl)")
	flags.StringVar(&opts.envPrefix, "env-prefix", "APP", "prefix of the environment variables")
	flags.StringVar(&opts.listen, "listen", "", "serve metrics and health on this address until interrupted")
	flags.StringVar(&opts.driverFamily, "driver-family", "pgx", "connection pool implementation: pgx or sql")
	flags.BoolVar(&opts.verify, "verify", false, "fail to build a pool that cannot be reached")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	opts.names = flags.Args()

	return opts, nil
}

func newFactory(family string, verify bool) (datasource.Factory, error) {
	switch family {
	case "pgx":
		return pgxsource.Factory{Verify: verify}, nil
	case "sql":
		return sqlsource.Factory{Verify: verify}, nil
	default:
		return nil, fmt.Errorf("unknown driver family %q, expected pgx or sql", family)
	}
}

func loadConfig(opts options) (configSource, []string, error) {
	if strings.EqualFold(filepath.Ext(opts.configFile), ".hcl") {
		source, err := config.LoadHCL(opts.configFile)
		if err != nil {
			return nil, nil, err
		}
		return source, source.Names(), nil
	}

	loadOpts := []option.Option[config.Options]{config.WithEnvPrefix(opts.envPrefix), config.WithDataSources(opts.names...)}
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithFile(opts.configFile))
	}
	conf, err := config.Load(loadOpts...)
	if err != nil {
		return nil, nil, err
	}
	return conf, conf.DataSourceNames(), nil
}

func run(ctx context.Context, logger *zerolog.Logger, opts options, stdout io.Writer) error {
	factory, err := newFactory(opts.driverFamily, opts.verify)
	if err != nil {
		return err
	}
	conf, names, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if len(opts.names) > 0 {
		names = opts.names
	}
	if len(names) == 0 {
		return errors.New("no data source to bind, name one or use a configuration file")
	}

	container := inject.New(inject.WithLogger(logger))
	//goland:noinspection GoUnhandledErrorResult
	defer container.Close()

	modules := []inject.Module{conf.Module()}
	registrars := make([]*datasource.Module, 0, len(names))
	for _, name := range names {
		module, err := datasource.NewNamedModule(name, factory, datasource.WithLogger(logger))
		if err != nil {
			return err
		}
		modules = append(modules, module)
		registrars = append(registrars, module)
	}
	if err := container.Install(modules...); err != nil {
		return err
	}
	if err := container.Init(ctx); err != nil {
		return err
	}

	sources := make(map[string]datasource.ConnectionSource, len(registrars))
	for _, module := range registrars {
		source, err := inject.ResolveKey[datasource.ConnectionSource](ctx, container, module.Key())
		if err != nil {
			return err
		}
		sources[module.Identity().Name()] = source
	}

	_, _ = fmt.Fprintf(stdout, "here is what we have in store:\n%s", container.Describe())

	if opts.listen == "" {
		if err := datasource.PingAll(ctx, sources); err != nil {
			return err
		}
		logger.Info().Strs("datasources", names).Msg("all data sources are reachable")
		return nil
	}

	if err := datasource.PingAll(ctx, sources); err != nil {
		logger.Warn().Err(err).Msg("some data sources are not reachable yet")
	}
	return serve(ctx, logger, opts.listen, sources)
}

func serve(ctx context.Context, logger *zerolog.Logger, addr string, sources map[string]datasource.ConnectionSource) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		metrics.NewPoolCollector("dsbind", sources),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(registry, sources),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("serving metrics")

	err := runner.RunAll(ctx, runner.HTTPServer(srv, 5*time.Second))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newRouter(registry *prometheus.Registry, sources map[string]datasource.ConnectionSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := datasource.PingAll(req.Context(), sources); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

func main() {
	level, err := NewGlobalLogLevel()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := NewLogger(level)

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("invalid arguments")
	}

	ctx, stop := runner.WithSignalContext(context.Background())
	defer stop()

	if err := run(ctx, logger, opts, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("dsbind failed")
		stop()
		os.Exit(1)
	}
}
