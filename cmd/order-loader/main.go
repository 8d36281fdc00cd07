package main

import (
	"encoding/json"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickeats/order-service/internal/orders"
	"github.com/quickeats/order-service/pkg/models"
)

// order-loader seeds a running order service with orders from a JSON file
// (an array of create-order request bodies) through the public HTTP API.

type loadResult struct {
	total     int
	succeeded int
	failed    int
	skipped   int
}

func main() {
	file := flag.String("file", "orders.json", "JSON file with an array of create-order requests")
	url := flag.String("url", "http://localhost:8081", "base URL of the order service")
	concurrency := flag.Int("concurrency", 5, "number of concurrent requests")
	delay := flag.Duration("delay", 50*time.Millisecond, "delay between submissions")
	dryRun := flag.Bool("dry-run", false, "validate the file without creating orders")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read orders file")
	}

	var requests []models.CreateOrderRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		logger.WithError(err).Fatal("Failed to parse orders file")
	}

	client := orders.NewClient(*url, logger)
	result := loadResult{total: len(requests)}

	logger.WithFields(logrus.Fields{
		"file":        *file,
		"url":         *url,
		"count":       len(requests),
		"concurrency": *concurrency,
		"dry_run":     *dryRun,
	}).Info("Starting order load")

	start := time.Now()
	var mutex sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, *concurrency)

	for i := range requests {
		req := requests[i]

		// Validate locally first so a bad entry is a skip, not a 400.
		if _, err := req.Validate(); err != nil {
			logger.WithError(err).WithField("index", i).Warn("Skipping invalid order entry")
			mutex.Lock()
			result.skipped++
			mutex.Unlock()
			continue
		}

		if *dryRun {
			mutex.Lock()
			result.succeeded++
			mutex.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(index int, req models.CreateOrderRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			order, err := client.CreateOrder(&req)
			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				logger.WithError(err).WithField("index", index).Error("Failed to create order")
				result.failed++
				return
			}
			result.succeeded++
			logger.WithFields(logrus.Fields{
				"index":        index,
				"order_id":     order.OrderID,
				"total_amount": order.TotalAmount,
			}).Info("Order loaded")
		}(i, req)

		time.Sleep(*delay)
	}

	wg.Wait()

	logger.WithFields(logrus.Fields{
		"total":     result.total,
		"succeeded": result.succeeded,
		"failed":    result.failed,
		"skipped":   result.skipped,
		"duration":  time.Since(start).String(),
	}).Info("Order load complete")

	if result.failed > 0 {
		os.Exit(1)
	}
}
