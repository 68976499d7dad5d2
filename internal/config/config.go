package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ContentSource string // active content source name (ezoe|stmn1|wix)
	ScheduleFile  string // path to the schedule JSON document
	FetchTimeout  time.Duration

	DispatchRulesFile string // jobs.yaml path (optional, defaults apply)
	DispatchStateFile string // last-fire-time state path
	SummaryArchive    string // archived copy of the last weekly summary HTML

	TokenTTL      time.Duration // reply token lifetime
	PurgeInterval time.Duration // expired-token sweep interval

	// SMTP (optional; unset host => log-only mailer)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	TLSMode      string // starttls | ssl

	EmailFrom          string
	EmailTo            []string // daily content recipients
	AdminSummaryTo     []string // weekly summary recipients
	AdminSummaryFrom   string
	AdminSubjectPrefix string

	// Redis (optional; unset addr => no lesson cache)
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisConnectTimeout time.Duration
	RedisRetryInterval  time.Duration
	RedisMaxWait        time.Duration
	RedisPingTimeout    time.Duration
	LessonCacheTTL      time.Duration
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("MANNA_LISTEN_ADDR", ":8080"),
		ShutdownTimeout: mustDuration("MANNA_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MANNA_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MANNA_PRETTY_LOG", true),

		// Pipeline
		ContentSource: strings.ToLower(getenv("CONTENT_SOURCE", "ezoe")),
		ScheduleFile:  getenv("MANNA_SCHEDULE_FILE", "state/schedule.json"),
		FetchTimeout:  mustDuration("MANNA_FETCH_TIMEOUT", 30*time.Second),

		DispatchRulesFile: getenv("MANNA_DISPATCH_RULES", "config/jobs.yaml"),
		DispatchStateFile: getenv("MANNA_DISPATCH_STATE", "state/dispatch_state.json"),
		SummaryArchive:    getenv("MANNA_SUMMARY_ARCHIVE", "state/last_schedule_summary.html"),

		TokenTTL:      mustDuration("MANNA_TOKEN_TTL", 10*24*time.Hour),
		PurgeInterval: mustDuration("MANNA_PURGE_INTERVAL", 6*time.Hour),

		// Mail
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUser:     getenv("SMTP_USER", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		TLSMode:      strings.ToLower(getenv("TLS_MODE", "starttls")),

		EmailFrom:          getenv("EMAIL_FROM", ""),
		EmailTo:            splitAndTrim(getenv("EMAIL_TO", "")),
		AdminSummaryTo:     splitAndTrim(getenv("ADMIN_SUMMARY_TO", "")),
		AdminSummaryFrom:   getenv("ADMIN_SUMMARY_FROM", ""),
		AdminSubjectPrefix: getenv("ADMIN_SUMMARY_SUBJECT_PREFIX", "[DailyManna]"),

		// Redis settings
		RedisAddr:           getenv("MANNA_REDIS_ADDR", ""),
		RedisPassword:       getenv("MANNA_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MANNA_REDIS_DB", 0),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 2*time.Second),
		LessonCacheTTL:      mustDuration("MANNA_LESSON_CACHE_TTL", 24*time.Hour),
	}

	if cfg.EmailFrom == "" {
		cfg.EmailFrom = cfg.SMTPUser
	}
	if cfg.AdminSummaryFrom == "" {
		cfg.AdminSummaryFrom = cfg.EmailFrom
	}
	if cfg.SMTPHost != "" && len(cfg.EmailTo) == 0 {
		panic("❌ FATAL: EMAIL_TO is required when SMTP_HOST is set")
	}

	return cfg
}

// SMTPEnabled reports whether real mail delivery is configured.
func (c *Config) SMTPEnabled() bool { return c.SMTPHost != "" }

// RedisEnabled reports whether the lesson cache should be wired.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
