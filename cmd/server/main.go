package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"trafficmonitor/internal/app"
	"trafficmonitor/internal/config"
)

func main() {
	cfg := config.Load()

	// Command-line flags override environment values.
	flag.StringVar(&cfg.VideoPath, "video", cfg.VideoPath, "Video file or frame directory to analyse")
	flag.StringVar(&cfg.ServedVideoPath, "served-video", cfg.ServedVideoPath, "Video file served on /video-stream")
	flag.IntVar(&cfg.SampleStride, "stride", cfg.SampleStride, "Process every Nth frame")
	flag.StringVar(&cfg.Junction, "junction", cfg.Junction, "Junction label stored with every record")
	flag.IntVar(&cfg.FrameWidth, "width", cfg.FrameWidth, "Processing frame width")
	flag.IntVar(&cfg.FrameHeight, "height", cfg.FrameHeight, "Processing frame height")
	flag.DurationVar(&cfg.FrameDelay, "delay", cfg.FrameDelay, "Pause after each processed frame")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Detection model weights")
	flag.StringVar(&cfg.ConfigPath, "model-config", cfg.ConfigPath, "Detection model config")
	flag.Float64Var(&cfg.ConfidenceThreshold, "confidence", cfg.ConfidenceThreshold, "Minimum detection confidence")
	flag.Parse()

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}
