package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/systemiqofficial/steel-iq-sub000/internal/api"
	"github.com/systemiqofficial/steel-iq-sub000/internal/api/handlers"
	"github.com/systemiqofficial/steel-iq-sub000/internal/store"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var st *store.Store
	if path := os.Getenv("STEELIQ_DB"); path != "" {
		var err error
		st, err = store.New(path)
		if err != nil {
			log.Error("API: open store", slog.Any("err", err))
			os.Exit(1)
		}
		defer st.Close()
		log.Info("API: persisting runs", slog.String("db", path))
	}

	cache := handlers.NewRunCache(time.Hour)
	router := api.NewRouter(api.Options{
		Cache:       cache,
		Store:       st,
		ScenarioDir: os.Getenv("SCENARIO_DIR"),
		Log:         log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := cache.Cleanup(); n > 0 {
					log.Info("API: expired cached runs", slog.Int("count", n))
				}
			}
		}
	}()

	srv := &http.Server{Addr: fmt.Sprintf(":%s", port), Handler: router}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info("API: starting server", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("API: server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
