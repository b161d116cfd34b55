package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dwaite/trimpool/internal/archive"
	"github.com/dwaite/trimpool/internal/database"
	"github.com/dwaite/trimpool/internal/logging"
	"github.com/dwaite/trimpool/internal/payment"
	"github.com/dwaite/trimpool/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("TRIMPOOL_LOG_LEVEL"))

	port := os.Getenv("TRIMPOOL_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("TRIMPOOL_DB_PATH")
	if dbPath == "" {
		dbPath = "trimpool.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var payments *payment.Client
	if key := os.Getenv("TRIMPOOL_STRIPE_SECRET_KEY"); key != "" {
		payments = payment.NewClient(payment.Config{
			SecretKey:     key,
			WebhookSecret: os.Getenv("TRIMPOOL_STRIPE_WEBHOOK_SECRET"),
			Currency:      os.Getenv("TRIMPOOL_CURRENCY"),
			SuccessURL:    os.Getenv("TRIMPOOL_CHECKOUT_SUCCESS_URL"),
			CancelURL:     os.Getenv("TRIMPOOL_CHECKOUT_CANCEL_URL"),
		})
	} else {
		logger.Warn("TRIMPOOL_STRIPE_SECRET_KEY not set, payment endpoints disabled")
	}

	archiveCfg := archive.Config{
		Dir:        os.Getenv("TRIMPOOL_ARCHIVE_DIR"),
		Passphrase: os.Getenv("TRIMPOOL_ARCHIVE_PASSPHRASE"),
	}
	if archiveCfg.Dir == "" {
		archiveCfg.Dir = "archives"
	}

	srv := server.New(db, payments, archiveCfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Background sweep of expired rate-limit buckets
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.WeighInLimiter().Sweep()
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("trimpool listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
