package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sashankstar/Food-order-tracking/internal/tracker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	baseURL := flag.String("url", envOr("TRACK_URL", "http://localhost:8080"), "base URL of the API")
	orderID := flag.String("order", "", "order id to track")
	interval := flag.Duration("interval", tracker.DefaultInterval, "poll interval")
	follow := flag.Bool("follow", false, "keep polling after the order is delivered")
	flag.Parse()

	if *orderID == "" && flag.NArg() > 0 {
		*orderID = flag.Arg(0)
	}
	if *orderID == "" {
		fmt.Fprintln(os.Stderr, "usage: track [-url URL] [-interval D] [-follow] -order ID")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := tracker.NewPoller(*baseURL, logger, tracker.WithInterval(*interval))
	timeline := tracker.NewTimeline(os.Stdout)

	err := poller.Watch(ctx, *orderID, timeline, !*follow)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("tracking stopped", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
