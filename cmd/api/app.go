package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/books-search/cmd/api/boltstore"
	"github.com/books-search/cmd/api/book"
	"github.com/books-search/cmd/api/config"
	"github.com/books-search/cmd/api/database"
	bookhttp "github.com/books-search/cmd/api/http"
	"github.com/books-search/cmd/api/inmemory"
	"github.com/books-search/cmd/api/logging"
	"github.com/books-search/cmd/api/redisstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	logger   *zap.Logger
	config   *config.Config
	server   *http.Server
	cleanups []func()
}

func NewApp(configFile, envFile string) (*App, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, err
	}

	logger, flusher := logging.New(cfg.Log.Level, cfg.Log.Production)
	app := &App{
		logger:   logger,
		config:   cfg,
		cleanups: []func(){flusher},
	}

	repo, err := app.openRepository(context.Background())
	if err != nil {
		app.Clean()
		return nil, err
	}

	bookService := book.NewService(repo, logger)
	bookHandler := bookhttp.NewBookHandler(bookService, cfg.Server.FieldErrorStatus, logger)
	app.server = bookhttp.NewServer(bookhttp.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, bookHandler, logger)

	return app, nil
}

/* Opens the storage engine picked by configuration and registers its cleanup. */
func (app *App) openRepository(ctx context.Context) (book.Repository, error) {
	cfg := app.config
	app.logger.Info("opening storage", zap.String("driver", cfg.Storage.Driver))

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		dbObject, err := database.ConnectDb(cfg.Postgres.URL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("connecting with db: %w", err)
		}
		app.addCleanup("postgres", dbObject.Close)

		store := database.NewStore(dbObject)
		if err = database.MigrationUp(store, cfg.Postgres.MigrationsPath, app.logger); err != nil {
			return nil, fmt.Errorf("migrating: %w", err)
		}
		return store, nil

	case config.DriverBolt:
		store, err := boltstore.Open(boltstore.Config{
			FilePath: cfg.Bolt.FilePath,
			Timeout:  cfg.Bolt.Timeout,
			Bucket:   cfg.Bolt.Bucket,
		}, app.logger)
		if err != nil {
			return nil, fmt.Errorf("opening bolt store: %w", err)
		}
		app.addCleanup("bolt", store.Close)
		return store, nil

	case config.DriverRedis:
		redisConfig := redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}
		client, err := redisstore.GetRedisClient(ctx, redisConfig)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		store := redisstore.NewStore(client, redisConfig.Key, app.logger)
		app.addCleanup("redis", store.Close)
		return store, nil

	default:
		store, err := inmemory.NewStore()
		if err != nil {
			return nil, fmt.Errorf("creating in-memory store: %w", err)
		}
		return store, nil
	}
}

func (app *App) addCleanup(name string, closeFn func() error) {
	// prepend so resources close before the logger is flushed
	app.cleanups = append([]func(){func() {
		if err := closeFn(); err != nil {
			app.logger.Error("failed to close storage", zap.String("driver", name), zap.Error(err))
		}
	}}, app.cleanups...)
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped", zap.String("addr", app.server.Addr), zap.Error(err))
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. Its returned error is caught by the errgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting", zap.String("addr", app.server.Addr))
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop waits for the group context then shuts the server down gracefully,
// forcing it closed when the graceful shutdown does not complete in time.
// It always returns nil so the errgroup reports the Serve result only.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil:
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}
