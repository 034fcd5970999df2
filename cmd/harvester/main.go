package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/app_setting"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/config"
	"github.com/papermux/papermux/fetcher"
	"github.com/papermux/papermux/harvester"
	"github.com/papermux/papermux/harvester/modules"
	"github.com/papermux/papermux/store"
	"github.com/papermux/papermux/utils/dotenv"
	Logger "github.com/papermux/papermux/utils/log"
)

var (
	// Configuration to customize binary startup.
	appSettingPath = flag.String("app_setting_path", "cmd/harvester/setting.yaml", "path to harvester app setting")
)

// init() will always be called before the execution of main function.
func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	Logger.InitLogger("harvester")
}

func newStatsdClient(addr string) *statsd.Client {
	if addr == "" {
		return nil
	}
	client, err := statsd.New(addr)
	if err != nil {
		Logger.Log.Fatal("fail to initialize statsd client: ", err)
	}
	return client
}

func main() {
	flag.Parse()
	setting := app_setting.ParseHarvesterAppSetting(*appSettingPath)

	cfg, err := config.Load()
	if err != nil {
		Logger.Log.Fatal("fail to load config: ", err)
	}
	if cfg == nil {
		// -h/--help was requested.
		return
	}

	db, err := store.GetDBConnection(cfg.DSN())
	if err != nil {
		Logger.Log.Fatal("fail to connect database: ", err)
	}
	if err := store.DatabaseSetupAndMigration(db); err != nil {
		Logger.Log.Fatal("fail to migrate database: ", err)
	}
	st := store.NewGormStore(db)

	provider, err := ai.NewFromConfig(cfg)
	if err != nil {
		Logger.Log.Fatal("fail to initialize ai provider: ", err)
	}

	rss := collector.NewRSSCollector(cfg.UserAgent, cfg.HTTPTimeout())
	live := collector.NewLiveCollector(cfg.UserAgent, cfg.HTTPTimeout())
	pageFetcher := collector.NewPageFetcher(cfg.UserAgent, cfg.HTTPTimeout(), cfg.MaxRedirects)
	az := analyzer.New(provider, pageFetcher, cfg.ReduceByteBudget, cfg.MaxRedirects)
	service := fetcher.NewService(st, rss, live, az, cfg)

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize all engine modules here.
	ms := []harvester.Module{
		// Scheduler scans the journal table and emits fetch jobs for due
		// journals.
		modules.NewScheduler(modules.SchedulerConfig{
			Name:          "scheduler",
			PollInterval:  setting.PollInterval(),
			FetchInterval: cfg.MinFetchInterval(),
		}, st, eventbus),
		// Worker consumes fetch jobs and runs them through the fetch service.
		modules.NewWorker(modules.WorkerConfig{
			Name:        "worker",
			Concurrency: setting.MAX_CONCURRENT_FETCHES,
		}, service, eventbus),
		// Reporter reports the execution metrics to datadog for monitoring
		// purpose.
		modules.NewReporter(modules.ReporterConfig{
			Name: "reporter",
		}, newStatsdClient(setting.STATSD_ADDR), eventbus),
	}

	engine := harvester.NewEngine(ms, eventbus)

	Logger.Log.Info("===== Harvester Started =====")
	// blocking call.
	engine.Run(ctx)

	Logger.Log.Info("harvester stopped execution")
}
