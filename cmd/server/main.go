package main

import (
	"github.com/go-redis/redis/v8"

	"github.com/papermux/papermux/analyzer"
	"github.com/papermux/papermux/analyzer/ai"
	"github.com/papermux/papermux/collector"
	"github.com/papermux/papermux/config"
	"github.com/papermux/papermux/fetcher"
	"github.com/papermux/papermux/server"
	"github.com/papermux/papermux/store"
	"github.com/papermux/papermux/utils/dotenv"
	Logger "github.com/papermux/papermux/utils/log"
)

// init() will always be called before the execution of main function.
func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	Logger.InitLogger("api_server")
}

func main() {
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

	var redisClient *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
		})
	}
	cache := server.NewFeedCache(redisClient, cfg.FeedCacheTTL())

	srv := server.New(st, service, live, cache, cfg)

	Logger.Log.Info("===== API Server Started =====")
	if err := srv.Router().Run(":" + cfg.Port); err != nil {
		Logger.Log.Fatal("server stopped: ", err)
	}
}
