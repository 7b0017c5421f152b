package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/orchestrate"
	"github.com/Sriram-PR/seo-auditor/pkg/report"
	"github.com/Sriram-PR/seo-auditor/pkg/server"
	"github.com/Sriram-PR/seo-auditor/pkg/storage"
	"github.com/Sriram-PR/seo-auditor/pkg/watch"
)

func main() {
	// --- Early Initialization & Flags ---
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	configFileFlag := flag.String("config", "", "Path to YAML config file (defaults are used when empty)")
	logLevelFlag := flag.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	sitemapFlag := flag.String("sitemap", "", "Sitemap URL to audit (one-shot mode)")
	multiFlag := flag.Bool("multi", false, "Probe numbered sibling sitemaps (sitemap-2.xml, ...)")
	languagesFlag := flag.Bool("languages", false, "Detect missing translations")
	duplicatesFlag := flag.Bool("duplicates", false, "Detect duplicate titles, descriptions and content")
	serveFlag := flag.Bool("serve", false, "Run the HTTP server instead of a one-shot audit")
	watchFlag := flag.Bool("watch", false, "Re-audit the configured watch targets on their interval")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevelFlag, err)
	} else {
		log.SetLevel(level)
	}

	loadEnv(log)

	// --- Load Application Configuration ---
	appCfg, warnings, err := loadConfig(*configFileFlag)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	logAppConfig(appCfg, log)

	if *serveFlag && *watchFlag {
		log.Fatal("Error: -serve and -watch cannot be combined.")
	}
	if *watchFlag && len(appCfg.Watch.Targets) == 0 {
		log.Fatal("Error: -watch requires at least one entry under watch.targets in the config file.")
	}
	if !*serveFlag && !*watchFlag && *sitemapFlag == "" {
		log.Fatal("Error: -sitemap is required unless -serve or -watch is set.")
	}

	// --- Context & Signal Handling ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Components ---
	entry := logrus.NewEntry(log)
	store, err := storage.NewStore(ctx, appCfg.Store, entry)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	if bs, ok := store.(*storage.BadgerStore); ok {
		go bs.RunGC(ctx, 10*time.Minute)
	}

	mode := runOptions{
		serve: *serveFlag,
		watch: *watchFlag,
		request: orchestrate.Request{
			SitemapURL: *sitemapFlag,
			Options: models.Options{
				CheckMultipleSitemaps: *multiFlag,
				DetectLanguages:       *languagesFlag,
				DetectDuplicates:      *duplicatesFlag,
			},
		},
		out: os.Stdout,
	}
	if err := run(ctx, mode, appCfg, store, log); err != nil {
		stop()
		os.Exit(1)
	}
}

// runOptions selects what run does once the components are wired
type runOptions struct {
	serve   bool
	watch   bool
	request orchestrate.Request // One-shot audit when neither serve nor watch is set
	out     io.Writer           // One-shot event output
}

// run wires the pipeline and executes the selected mode. store (may be nil) is closed
// before run returns, on every path.
func run(ctx context.Context, opts runOptions, appCfg *config.AppConfig, store storage.RunStore, log *logrus.Logger) error {
	defer closeStore(store, log)
	entry := logrus.NewEntry(log)

	renderer := report.NewFileRenderer(appCfg.Reports.Dir, entry)
	orch, err := orchestrate.NewOrchestrator(appCfg, renderer, store, entry)
	if err != nil {
		log.Errorf("Failed to initialize orchestrator: %v", err)
		return err
	}

	switch {
	case opts.serve:
		setupGinMode(appCfg.Server.GinMode)
		srv := server.New(orch, store, appCfg.Server, entry)
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Errorf("Server error: %v", err)
			return err
		}
		log.Info("Server stopped.")

	case opts.watch:
		scheduler, err := watch.NewScheduler(orch, appCfg.Watch, entry)
		if err != nil {
			log.Errorf("Failed to initialize watch scheduler: %v", err)
			return err
		}
		if err := scheduler.Run(ctx); err != nil {
			log.Errorf("Watch error: %v", err)
			return err
		}
		log.Info("Watch stopped.")

	default:
		if _, err := orch.Run(ctx, opts.request, eventPrinter(opts.out, log)); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("Audit cancelled.")
			}
			return err
		}
	}
	return nil
}

func closeStore(store storage.RunStore, log *logrus.Logger) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Errorf("Failed to close store: %v", err)
	}
}

// loadEnv loads .env.development, falling back to .env
func loadEnv(log *logrus.Logger) {
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Debug("No .env file found, using environment variables")
		}
	}
}

// loadConfig reads the YAML file at path (or starts from an empty config when path is empty),
// applies environment overrides and validates. Warnings are returned for the caller to log.
func loadConfig(path string) (*config.AppConfig, []string, error) {
	appCfg := &config.AppConfig{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		appCfg = loaded
	}

	warnings := appCfg.ApplyEnv()
	validateWarnings, err := appCfg.Validate()
	warnings = append(warnings, validateWarnings...)
	if err != nil {
		return nil, warnings, err
	}
	return appCfg, warnings, nil
}

func setupGinMode(mode string) {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
}

// eventPrinter writes each event as one JSON line
func eventPrinter(w io.Writer, log *logrus.Logger) func(models.Event) {
	enc := json.NewEncoder(w)
	return func(ev models.Event) {
		if err := enc.Encode(ev); err != nil {
			log.Errorf("Failed to write %s event: %v", ev.EventType(), err)
		}
	}
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Concurrency:%d, MaxAttempts:%d, BackoffStep:%v, DelayPerHost:%v",
		appCfg.Concurrency, appCfg.MaxAttempts, appCfg.RetryBackoffStep, appCfg.DelayPerHost)
	log.Infof("Config Timeouts: Page:%v, Sitemap:%v, Probe:%v, ProbeGet:%v",
		appCfg.PageTimeout, appCfg.SitemapTimeout, appCfg.ProbeTimeout, appCfg.ProbeGetTimeout)
	log.Infof("Config Sitemap: IndexCandidates:%v, NumberedWindow:%d, MaxIndexDepth:%d, Robots:%t",
		appCfg.Sitemap.IndexCandidates, appCfg.Sitemap.NumberedWindow, appCfg.Sitemap.MaxIndexDepth,
		appCfg.Sitemap.DiscoverFromRobotsEnabled())
	log.Infof("Config Languages: Default:%s, URLPatterns:%v, Secondary:%v",
		appCfg.Languages.Default, appCfg.Languages.URLPatterns, appCfg.Languages.Secondary)
	log.Infof("Config Output: Reports:%s, Store:%s", appCfg.Reports.Dir, storeLabel(appCfg.Store))
	if len(appCfg.Watch.Targets) > 0 {
		log.Infof("Config Watch: Interval:%s, StateDir:%s, Targets:%d",
			appCfg.Watch.Interval, appCfg.Watch.StateDir, len(appCfg.Watch.Targets))
	}
}

func storeLabel(cfg config.StoreConfig) string {
	switch cfg.Driver {
	case "":
		return "disabled"
	case "badger":
		return fmt.Sprintf("badger (%s)", cfg.StateDir)
	default:
		return cfg.Driver
	}
}
