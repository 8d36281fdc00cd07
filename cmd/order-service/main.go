package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/quickeats/order-service/internal/config"
	"github.com/quickeats/order-service/internal/events"
	"github.com/quickeats/order-service/internal/feed"
	"github.com/quickeats/order-service/internal/orders"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open order store")
	}
	defer store.Close()

	handler := orders.NewHandler(store, logger)

	// Eventing is best effort: the service keeps taking orders when Kafka
	// is down, matching the behavior the rest of the system expects.
	if cfg.Kafka.Enabled {
		producer, err := events.NewProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.WithError(err).Warn("Kafka unavailable, running without order events")
		} else {
			defer producer.Close()
			handler.SetPublisher(producer)
		}
	}

	hub := feed.NewHub(logger)
	go hub.Run()
	handler.SetFeed(hub)

	router := handler.Router()
	router.HandleFunc("/ws", hub.HandleWebSocket).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":  cfg.Port,
			"store": cfg.StoreBackend,
		}).Info("Starting order service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

func openStore(cfg *config.Config, logger *logrus.Logger) (orders.Store, error) {
	if cfg.StoreBackend == config.StoreMemory {
		logger.Info("Using in-memory order store")
		return orders.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	// The database container may still be starting.
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	store := orders.NewPostgresStore(db, logger)
	if err := store.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
