package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Songs to load at startup: comma-separated paths to song documents or
	// raw audio files. Command-line arguments take precedence.
	Songs []string

	// Playback
	Volume     float64       // initial master volume, 0..1
	Local      bool          // also play on the local audio device
	DeviceLag  time.Duration // local device buffer length
	StreamName string        // ICY / WebRTC stream display name
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:       envInt("LOOPMIX_PORT", 8080),
		Songs:      envList("LOOPMIX_SONGS"),
		Volume:     envFloat("LOOPMIX_VOLUME", 1.0),
		Local:      envBool("LOOPMIX_LOCAL", false),
		DeviceLag:  time.Duration(envInt("LOOPMIX_DEVICE_LAG_MS", 100)) * time.Millisecond,
		StreamName: envStr("LOOPMIX_STREAM_NAME", "loopmix"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
