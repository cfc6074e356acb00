package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/queue"
)

// booking-consumer appends every booking notification to a log file.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewBookingLogger(queue.BrokerURL(), os.Getenv("BOOKING_LOG_PATH"))
	log.Printf("booking-consumer: writing to %s", consumer.LogPath)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("booking-consumer: %v", err)
	}
	log.Printf("booking-consumer: stopped")
}
