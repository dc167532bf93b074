package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"philo_rooms/internal/api"
	"philo_rooms/internal/models"
	"philo_rooms/internal/repository"
	"philo_rooms/internal/service"
	"philo_rooms/internal/storage"
	"philo_rooms/pkg/config"
)

// openRepositories 依 store.driver 建立資料層，回傳的 close 函式負責釋放連線
func openRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := storage.NewPostgresDB(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		// 自動遷移資料庫結構
		if err := db.AutoMigrate(&models.Room{}, &models.Question{}, &models.Philosopher{}); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to auto migrate database: %w", err)
		}
		return repository.NewRepositories(db), func() { _ = db.Close() }, nil

	case config.DriverMongo:
		db, err := storage.NewMongoDB(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		return repository.NewMongoRepositories(db), func() { _ = db.Close() }, nil

	case config.DriverMemory:
		return repository.NewMemoryRepositories(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver: %q", cfg.Store.Driver)
}

func runServer(ctx context.Context, cfg *config.Config, seedPath string) error {
	repos, closeStore, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	services := service.NewServices(repos, service.RoomOptions{
		RoomSize:          cfg.Rooms.Size,
		IDMode:            service.IDMode(cfg.Rooms.IDMode),
		MaxUpdateAttempts: cfg.Rooms.MaxUpdateAttempts,
		KeyLength:         cfg.Rooms.KeyLength,
	})

	if seedPath != "" {
		data, err := service.LoadSeedFile(seedPath)
		if err != nil {
			return err
		}
		if err := services.Reference.Seed(ctx, data); err != nil {
			return err
		}
	}

	gin.SetMode(cfg.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	api.SetupRoutes(r, services, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Address).
			Str("store", cfg.Store.Driver).
			Int("room_size", cfg.Rooms.Size).
			Msg("philo_rooms server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
