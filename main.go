package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growset/config"
	"growset/config/database"
	"growset/internal/archive"
	"growset/internal/notify"
	handler "growset/internal/poll"
	"growset/internal/poll/repository"
	"growset/internal/poll/service"
	"growset/internal/retention"
	"growset/internal/view"
	"growset/pkg/logger"
	"growset/router"
	"growset/socket"
	"growset/web"
)

func main() {
	// 1. Configuration comes from the environment, optionally seeded by a .env file.
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	// .env may have changed the level.
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	// 2. Polls live on disk; the service layers validation and fan-out on top.
	repo := repository.NewPollRepository(cfg.Directory, cfg.SweepConcurrency)
	svc := service.NewPollService(repo, cfg)

	// 3. The hub runs its event loop in the background and receives new entries from the service.
	hub := socket.NewHub()
	go hub.Run()
	svc.Publisher = hub

	if n := notify.NewMailgun(cfg); n != nil {
		svc.Notifier = n
		logger.Sugar.Infof("Email notifications enabled for %s", cfg.EmailTo)
	}

	// 4. Deleted polls are summarized into Postgres when a database is configured.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Sugar.Fatalf("Could not connect to archive database: %v", err)
		}
		archiveRepo := archive.NewArchiveRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := archiveRepo.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Sugar.Fatalf("Could not prepare archive schema: %v", err)
		}
		if n, err := archiveRepo.Count(ctx); err == nil {
			logger.Sugar.Infof("Archive holds %d polls", n)
		}
		cancel()
		svc.Archiver = archiveRepo
	}

	// 5. Retention runs once at startup and then on the cron schedule.
	sweeper := retention.NewSweeper(repo, svc, cfg.Retention, cfg.SweepConcurrency)
	scheduler, err := retention.NewScheduler(sweeper, cfg.SweepSchedule)
	if err != nil {
		logger.Sugar.Fatalf("Invalid sweep schedule %q: %v", cfg.SweepSchedule, err)
	}
	scheduler.Start()

	h := handler.NewPollHandler(svc, view.NewRenderer(web.Templates()), hub, web.Static())
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("Listening on %s, data in %s", cfg.Addr(), cfg.Directory)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 6. Shut down on a termination signal or a listener failure.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	exitCode := 0
	select {
	case sig := <-stop:
		logger.Sugar.Infof("Received %s, shutting down", sig)
	case err := <-serverErr:
		logger.Sugar.Errorf("Server failed: %v", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Sugar.Errorf("HTTP shutdown: %v", err)
	}
	scheduler.Stop()
	hub.Stop()
	svc.Wait()
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Sugar.Errorf("Closing archive database: %v", err)
		}
	}
	logger.Sugar.Info("Shutdown complete")
	logger.Sync()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
