package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxpert/sqlmap/admin"
	"github.com/maxpert/sqlmap/builder"
	"github.com/maxpert/sqlmap/cfg"
	"github.com/maxpert/sqlmap/sqlmap"
	"github.com/maxpert/sqlmap/store"
	"github.com/maxpert/sqlmap/telemetry"
	"github.com/maxpert/sqlmap/validate"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("instance_id", cfg.Config.InstanceID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	// Load templates
	loader, err := store.NewLoader(cfg.Config.SQLMap.Dirs, cfg.Config.SQLMap.Include, cfg.Config.SQLMap.Exclude)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create template loader")
		return
	}
	templates := store.NewMemory()
	if err := loader.LoadInto(templates); err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
		return
	}
	telemetry.StoreDefinitions.Set(float64(templates.Len()))
	log.Info().
		Strs("dirs", loader.Dirs()).
		Int("templates", templates.Len()).
		Msg("Templates loaded")

	resolver := sqlmap.NewTemplateResolver(templates)
	checker, err := validate.NewChecker(cfg.Config.Validation.Dialect)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create template checker")
		return
	}

	if *cfg.CheckFlag {
		os.Exit(runCheck(checker, templates, resolver))
	}

	var (
		front      sqlmap.Resolver = resolver
		cache      *sqlmap.CachingResolver
		cacheSizer telemetry.Sizer
	)
	if cfg.Config.Cache.Enabled {
		cache, err = sqlmap.NewCachingResolver(resolver, cfg.Config.Cache.Size)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create resolution cache")
			return
		}
		front = cache
		cacheSizer = cache
	}
	sm := sqlmap.New(front, builder.New())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := store.NewWatcher(
		loader,
		templates,
		time.Duration(cfg.Config.SQLMap.WatchDebounceMS)*time.Millisecond,
		func(err error) {
			// Keys are versioned, purging only frees memory early
			if err == nil && cache != nil {
				cache.Purge()
			}
		},
	)
	if cfg.Config.SQLMap.Watch {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Template watcher stopped")
			}
		}()
		log.Info().Msg("Watching template directories for changes")
	}

	collector := telemetry.NewMetricsCollector(
		templates,
		cacheSizer,
		time.Duration(cfg.Config.SQLMap.StatsIntervalSec)*time.Second,
	)
	collector.Start()
	defer collector.Stop()

	var server *http.Server
	if cfg.Config.Admin.Enabled {
		mux := http.NewServeMux()
		admin.RegisterRoutes(mux, admin.NewAdminHandlers(sm, templates, checker, watcher, cfg.Config.Validation.Strict))

		server = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Config.Admin.BindAddress, cfg.Config.Admin.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Admin HTTP server failed")
				stop()
			}
		}()
		log.Info().Str("addr", server.Addr).Msg("Admin HTTP server started")
	}

	log.Info().
		Bool("cache", cfg.Config.Cache.Enabled).
		Str("dialect", string(cfg.Config.Validation.Dialect)).
		Msg("SQL map service is operational")

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Admin HTTP server shutdown failed")
		}
	}
}

// runCheck lints every template and returns the process exit code.
func runCheck(checker *validate.Checker, templates *store.Memory, resolver sqlmap.Resolver) int {
	reports := checker.CheckAll(templates, resolver)
	strict := cfg.Config.Validation.Strict

	for _, r := range reports {
		switch {
		case r.Err != nil:
			log.Error().Err(r.Err).Str("id", r.ID).Msg("Template check failed")
		case r.Mismatch:
			evt := log.Warn()
			if strict {
				evt = log.Error()
			}
			evt.Str("id", r.ID).
				Str("table", r.Table).
				Str("ast_table", r.ASTTable).
				Msg("Template table mismatch")
		default:
			log.Debug().Str("id", r.ID).Str("table", r.Table).Msg("Template OK")
		}
	}

	failed := validate.CountFailed(reports, strict)
	log.Info().
		Int("checked", len(reports)).
		Int("failed", failed).
		Msg("Template check finished")
	if failed > 0 {
		return 1
	}
	return 0
}
