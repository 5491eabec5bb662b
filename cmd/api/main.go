package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/bankrecon/internal/api"
	"github.com/punchamoorthee/bankrecon/internal/audit"
	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/config"
	"github.com/punchamoorthee/bankrecon/internal/service"
	"github.com/punchamoorthee/bankrecon/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewPostgres(ctx, cfg.DBSource, log)
	if err != nil {
		log.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	// Initialize Layers
	auditLog := audit.NewPostgresLogger(db.Db, log)
	defer auditLog.Wait()
	svc := service.New(db, auditLog, log, service.Config{
		FeeAccountCode:      cfg.FeeAccountCode,
		InterestAccountCode: cfg.InterestAccountCode,
	})
	handler := api.NewHandler(svc, auth.HeaderAuthorizer{}, log, cfg.RequestTimeout, cfg.Currency)

	// Router
	r := handler.Router()
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Port, "environment", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
