package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTVPath is the default directory demo files are written to and read from.
	DefaultTVPath = "demos"
	// DefaultTVAuto controls whether recording starts automatically once a match goes active.
	DefaultTVAuto = false
	// DefaultSVFPS is the server frame rate stamped into every demo header.
	DefaultSVFPS = 20
	// DefaultMaxClients bounds the player slots a demo header reserves.
	DefaultMaxClients = 32

	// DefaultRetentionMaxAge controls how long finalized demo files are kept on disk.
	DefaultRetentionMaxAge = 14 * 24 * time.Hour
	// DefaultRetentionMaxFiles bounds how many finalized demo files are kept regardless of age.
	DefaultRetentionMaxFiles = 500
	// DefaultRetentionInterval controls how frequently the retention sweep runs.
	DefaultRetentionInterval = time.Hour

	// DefaultSeekRateWindow bounds how frequently tv_seek/tv_view_* may be issued.
	DefaultSeekRateWindow = 10 * time.Second
	// DefaultSeekRateBurst sets how many seek/view commands may be issued per window.
	DefaultSeekRateBurst = 5

	// DefaultLogLevel controls verbosity for tvdemo logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "tvdemo.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultAdminAddr is the default address the read-only ops HTTP surface listens on.
	DefaultAdminAddr = ":43128"
)

// Config captures all runtime tunables for the TV demo subsystem. Field names mirror the
// cvars named in spec.md §6 (sv_tvauto, sv_tvpath) so the mapping between env var and cvar
// stays obvious at a glance.
type Config struct {
	TVPath       string
	TVAuto       bool
	SVFPS        uint32
	MaxClients   uint32
	AdminAddr    string
	Retention    RetentionConfig
	SeekRate     SeekRateConfig
	Logging      LoggingConfig
}

// RetentionConfig bounds how long finalized demo files are kept.
type RetentionConfig struct {
	MaxAge   time.Duration
	MaxFiles int
	Interval time.Duration
}

// SeekRateConfig rate-limits the tv_seek/tv_view_next/tv_view_prev command surface.
type SeekRateConfig struct {
	Window time.Duration
	Burst  int
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the TV demo configuration from environment variables, applying sane defaults
// and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	tvPath := os.Getenv("TVDEMO_PATH")
	if tvPath == "" {
		tvPath = DefaultTVPath
	}
	cfg := &Config{
		TVPath:     strings.TrimSpace(tvPath),
		TVAuto:     DefaultTVAuto,
		SVFPS:      DefaultSVFPS,
		MaxClients: DefaultMaxClients,
		AdminAddr:  getString("TVDEMO_ADMIN_ADDR", DefaultAdminAddr),
		Retention: RetentionConfig{
			MaxAge:   DefaultRetentionMaxAge,
			MaxFiles: DefaultRetentionMaxFiles,
			Interval: DefaultRetentionInterval,
		},
		SeekRate: SeekRateConfig{
			Window: DefaultSeekRateWindow,
			Burst:  DefaultSeekRateBurst,
		},
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("TVDEMO_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("TVDEMO_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_AUTO")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("TVDEMO_AUTO must be a boolean value, got %q", raw))
		} else {
			cfg.TVAuto = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_SV_FPS")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || value == 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_SV_FPS must be a positive integer, got %q", raw))
		} else {
			cfg.SVFPS = uint32(value)
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_MAX_CLIENTS")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || value == 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_MAX_CLIENTS must be a positive integer, got %q", raw))
		} else {
			cfg.MaxClients = uint32(value)
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_RETENTION_MAX_AGE")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_RETENTION_MAX_AGE must be a positive duration, got %q", raw))
		} else {
			cfg.Retention.MaxAge = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_RETENTION_MAX_FILES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_RETENTION_MAX_FILES must be a non-negative integer, got %q", raw))
		} else {
			cfg.Retention.MaxFiles = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_RETENTION_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_RETENTION_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.Retention.Interval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_SEEK_RATE_WINDOW")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_SEEK_RATE_WINDOW must be a positive duration, got %q", raw))
		} else {
			cfg.SeekRate.Window = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_SEEK_RATE_BURST")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_SEEK_RATE_BURST must be a positive integer, got %q", raw))
		} else {
			cfg.SeekRate.Burst = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("TVDEMO_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("TVDEMO_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("TVDEMO_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if strings.TrimSpace(cfg.TVPath) == "" {
		problems = append(problems, "TVDEMO_PATH must not be empty")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
