package env

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	envFileKey    = "ENV_FILE"
	configFileKey = "CONFIG_FILE"
)

var (
	mu sync.RWMutex
	v  = newViper()
)

func newViper() *viper.Viper {
	out := viper.New()
	out.AutomaticEnv()
	return out
}

// Load reads an optional .env file and an optional config file into the
// lookup chain. Process environment always wins over both.
func Load() error {
	envFile := strings.TrimSpace(os.Getenv(envFileKey))
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return err
		}
	}

	next := newViper()
	if path := strings.TrimSpace(os.Getenv(configFileKey)); path != "" {
		next.SetConfigFile(path)
		if err := next.ReadInConfig(); err != nil {
			return err
		}
	}

	mu.Lock()
	v = next
	mu.Unlock()
	return nil
}

func lookup(key string) (any, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if !v.IsSet(key) {
		return nil, false
	}
	raw := v.Get(key)
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return raw, true
}

func String(key, fallback string) string {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return fallback
	}
	return strings.TrimSpace(s)
}

func Int(key string, fallback int) int {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func Float(key string, fallback float64) float64 {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return fallback
	}
	return f
}

func Bool(key string, fallback bool) bool {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return fallback
	}
	return b
}

func Duration(key string, fallback time.Duration) time.Duration {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func CSV(key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok {
		return append([]string(nil), fallback...)
	}
	var parts []string
	switch typed := raw.(type) {
	case string:
		parts = strings.Split(typed, ",")
	default:
		list, err := cast.ToStringSliceE(typed)
		if err != nil {
			return append([]string(nil), fallback...)
		}
		parts = list
	}
	result := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	if len(result) == 0 {
		return append([]string(nil), fallback...)
	}
	return result
}
