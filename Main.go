package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"canteen/cache"
	"canteen/config"
	"canteen/events"
	"canteen/logger"
	"canteen/placement"
	"canteen/routers"
	"canteen/seed"
	"canteen/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file, empty for defaults")
	seedPath := flag.String("seed", "", "YAML seed file applied at start, overrides seed.path")
	flag.Parse()

	if err := run(*configPath, *seedPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, seedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if seedPath != "" {
		cfg.Seed.Path = seedPath
	}

	log := logger.New(cfg.Log)
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := config.SetupStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", "driver", cfg.Database.Driver, "error", err)
		return err
	}
	defer s.Close()
	log.Info("Store ready", "driver", cfg.Database.Driver)

	if cfg.Seed.Path != "" {
		file, err := seed.LoadFile(cfg.Seed.Path)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if _, err := seed.Apply(ctx, s, file, log); err != nil {
			return err
		}
	}

	var catalog store.CatalogReader = s.Catalog()
	opts := []placement.Option{}
	if cfg.Redis.Enabled {
		rdb, err := config.SetupRedisConnection(ctx, cfg.Redis)
		if err != nil {
			log.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
			return err
		}
		defer rdb.Close()

		catalogCache := cache.New(rdb, s.Catalog(), log, cache.Options{Key: cfg.Redis.Key, TTL: cfg.Redis.TTL})
		if err := catalogCache.Invalidate(ctx); err != nil {
			log.Warn("Failed to clear catalog cache", "error", err)
		}
		catalog = catalogCache
		opts = append(opts, placement.WithCache(catalogCache))
	}

	if cfg.RabbitMQ.Enabled {
		publisher, err := events.Connect(events.Config{
			URL:            cfg.RabbitMQ.URL,
			Exchange:       cfg.RabbitMQ.Exchange,
			PublishTimeout: cfg.RabbitMQ.PublishTimeout,
		}, log)
		if err != nil {
			log.Error("Failed to connect to RabbitMQ", "error", err)
			return err
		}
		defer publisher.Close()
		opts = append(opts, placement.WithPublisher(publisher))
	}

	engine := placement.New(s, log, opts...)

	gin.SetMode(cfg.Server.Mode)
	router := routers.SetupRouters(routers.Dependencies{
		Engine:       engine,
		Catalog:      catalog,
		Store:        s,
		Logger:       log,
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
		return err
	}
	log.Info("Server stopped")
	return nil
}
