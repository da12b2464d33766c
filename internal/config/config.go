package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"funduscam/internal/imaging"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int // Port podglądu HTTP, 0 wyłącza serwer
	LogDirectory string
	DatabasePath string

	CameraDevice int
	Headless     bool   // Bez okien OpenCV (stała maska, wyjście przez SIGINT)
	ExitKey      string // Klawisz kończący pętlę

	SerialPort        string
	SerialBaudRate    int
	SerialReadTimeout int // ms
	SerialWarmup      int // ms, czas na reset płytki po otwarciu portu

	SnapshotDirectory string
	MergedImagePath   string

	GlareThreshold  int
	PreviewInterval int // Co którą klatkę wysyłać podgląd do przeglądarek

	SquareSize   int
	SquareX      int
	SquareY      int
	CircleRadius int
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	mask := imaging.DefaultMaskConfig()

	return &Config{
		Port:         getEnvAsInt("PORT", 8080),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DatabasePath: getEnv("DB_PATH", filepath.Join(".", "data", "captures.db")),

		CameraDevice: getEnvAsInt("CAMERA_DEVICE", 0),
		Headless:     getEnvAsBool("HEADLESS", false),
		ExitKey:      getEnv("EXIT_KEY", "q"),

		SerialPort:        getEnv("SERIAL_PORT", "/dev/ttyUSB0"),
		SerialBaudRate:    getEnvAsInt("SERIAL_BAUD", 9600),
		SerialReadTimeout: getEnvAsInt("SERIAL_READ_TIMEOUT", 1000),
		SerialWarmup:      getEnvAsInt("SERIAL_WARMUP", 2000),

		SnapshotDirectory: getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		MergedImagePath:   getEnv("MERGED_IMAGE", "merged_image.jpg"),

		GlareThreshold:  getEnvAsInt("GLARE_THRESHOLD", imaging.DefaultBrightnessThreshold),
		PreviewInterval: getEnvAsInt("PREVIEW_INTERVAL", 3),

		SquareSize:   getEnvAsInt("SQUARE_SIZE", mask.SquareSize),
		SquareX:      getEnvAsInt("SQUARE_X", mask.SquareX),
		SquareY:      getEnvAsInt("SQUARE_Y", mask.SquareY),
		CircleRadius: getEnvAsInt("CIRCLE_RADIUS", mask.CircleRadius),
	}
}

// MaskConfig returns the configured start-up mask geometry.
func (c *Config) MaskConfig() imaging.MaskConfig {
	return imaging.MaskConfig{
		SquareSize:   c.SquareSize,
		SquareX:      c.SquareX,
		SquareY:      c.SquareY,
		CircleRadius: c.CircleRadius,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
