package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server reads from the environment so main
// stays lean. Zero-valued optional fields disable the corresponding backend
// (no redis URL means in-process dispatch claims, no kafka brokers means the
// audit trail stays on the in-memory store).
type Config struct {
	Addr string

	// PostgresDSN selects the durable store. Empty keeps the in-memory
	// stores, which is only suitable for tests and local runs.
	PostgresDSN string

	// RedisURL backs the pending-approval dispatch claims shared between
	// instances.
	RedisURL string

	// KafkaBrokers and AuditTopic feed the audit event sink.
	KafkaBrokers []string
	AuditTopic   string

	// FingerprintSalt is part of the durable schema: rotating it orphans
	// every stored origin fingerprint and forces re-verification for all
	// players. Treat changes as a migration, not a tuning knob.
	FingerprintSalt string

	// AccessCodes is the currently-valid invite code set. Codes are shared
	// by design; redeeming one does not retire it.
	AccessCodes []string

	// ApprovalTimeout bounds how long a join waits for the out-of-band
	// approval before it is treated as denied.
	ApprovalTimeout time.Duration

	// ApprovalWebhookURL is the endpoint that forwards approval requests to
	// the player's bound channel.
	ApprovalWebhookURL string

	SweepInterval time.Duration

	// Chat filter tuning. BlockedWords feeds the profanity filter; the
	// limit/window pair bounds the per-player sliding message window.
	BlockedWords []string
	ChatLimit    int
	ChatWindow   time.Duration

	// AdminKeyHash is the bcrypt hash of the admin API key.
	AdminKeyHash string

	// JWTSigningKey signs approval correlation tokens.
	JWTSigningKey string
}

// FromEnv builds the configuration from PL18_* environment variables.
func FromEnv() Config {
	return Config{
		Addr:               envDefault("PL18_ADDR", ":8080"),
		PostgresDSN:        os.Getenv("PL18_POSTGRES_DSN"),
		RedisURL:           os.Getenv("PL18_REDIS_URL"),
		KafkaBrokers:       envList("PL18_KAFKA_BROKERS"),
		AuditTopic:         envDefault("PL18_AUDIT_TOPIC", "pl18.audit.events"),
		FingerprintSalt:    envDefault("PL18_FINGERPRINT_SALT", "pl18-dev-salt"),
		AccessCodes:        envList("PL18_ACCESS_CODES"),
		ApprovalTimeout:    clampDuration(envDuration("PL18_APPROVAL_TIMEOUT", 3*time.Minute), 30*time.Second, 10*time.Minute),
		ApprovalWebhookURL: os.Getenv("PL18_APPROVAL_WEBHOOK_URL"),
		SweepInterval:      envDuration("PL18_SWEEP_INTERVAL", time.Hour),
		BlockedWords:       envList("PL18_BLOCKED_WORDS"),
		ChatLimit:          envInt("PL18_CHAT_LIMIT", 5),
		ChatWindow:         envDuration("PL18_CHAT_WINDOW", 10*time.Second),
		AdminKeyHash:       os.Getenv("PL18_ADMIN_KEY_HASH"),
		JWTSigningKey:      envDefault("PL18_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
