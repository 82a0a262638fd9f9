package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	VideoPath           string // Source video analysed by the pipeline
	ServedVideoPath     string // Video served as-is on /video-stream
	SampleStride        int    // Process every Nth frame
	Junction            string
	FrameWidth          int
	FrameHeight         int
	FrameDelay          time.Duration // Pause after each processed frame
	DatabasePath        string
	ModelPath           string
	ConfigPath          string
	ConfidenceThreshold float64
	LogDirectory        string
	StaticDirectory     string
	BroadcastBuffer     int
	MQTTBroker          string
	MQTTTopic           string
	KafkaBrokers        []string
	KafkaTopic          string
}

// Load reads the configuration from the environment. Values from a .env file
// in the working directory are applied first when the file exists.
func Load() *Config {
	_ = godotenv.Load()

	videoPath := getEnv("VIDEO_PATH", "traffic_sample.mp4")

	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		VideoPath:           videoPath,
		ServedVideoPath:     getEnv("SERVED_VIDEO_PATH", videoPath),
		SampleStride:        getEnvAsInt("SAMPLE_STRIDE", 10),
		Junction:            getEnv("JUNCTION", "main_junction"),
		FrameWidth:          getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:         getEnvAsInt("FRAME_HEIGHT", 480),
		FrameDelay:          time.Duration(getEnvAsInt("FRAME_DELAY_MS", 100)) * time.Millisecond,
		DatabasePath:        getEnv("DB_PATH", filepath.Join(".", "data", "traffic.db")),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:          getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:     getEnv("STATIC_DIR", filepath.Join(".", "static")),
		BroadcastBuffer:     getEnvAsInt("BROADCAST_BUFFER", 16),
		MQTTBroker:          getEnv("MQTT_BROKER", ""),
		MQTTTopic:           getEnv("MQTT_TOPIC", "traffic/counts"),
		KafkaBrokers:        getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "traffic-counts"),
	}
}

// Validate reports every setting that would make the pipeline unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.VideoPath == "" {
		errs = append(errs, errors.New("video path is required"))
	}
	if c.SampleStride < 1 {
		errs = append(errs, fmt.Errorf("sample stride must be >= 1, got %d", c.SampleStride))
	}
	if c.Junction == "" {
		errs = append(errs, errors.New("junction label is required"))
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid frame size %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.FrameDelay < 0 {
		errs = append(errs, fmt.Errorf("frame delay must not be negative, got %s", c.FrameDelay))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be within [0,1], got %v", c.ConfidenceThreshold))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
