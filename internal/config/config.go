package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"assoc-backend/internal/pricing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Season settings.
	SeasonYear           int
	EventFirstDay        time.Time
	EventLastDay         time.Time
	TotalEventDays       int
	PartialSignupOpensAt time.Time
	MaxParticipants      int
	MaxEBikeParticipants int
	PriceTiers           []pricing.Tier

	// Outbound mail. Empty SMTPHost switches the sender to log-only mode.
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Mailing-list API.
	ListAPIBaseURL  string
	ListAPIKey      string
	MailingListName string
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=assoc port=5432 sslmode=disable"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		SeasonYear:           getEnvInt("SEASON_YEAR", time.Now().Year()),
		EventFirstDay:        getEnvDate("EVENT_FIRST_DAY", "2026-07-18"),
		EventLastDay:         getEnvDate("EVENT_LAST_DAY", "2026-07-26"),
		TotalEventDays:       getEnvInt("TOTAL_EVENT_DAYS", 9),
		PartialSignupOpensAt: getEnvDateTime("PARTIAL_SIGNUP_OPENS_AT", "2026-05-20T17:00:00Z"),
		MaxParticipants:      getEnvInt("MAX_PARTICIPANTS", 135),
		MaxEBikeParticipants: getEnvInt("MAX_EBIKE_PARTICIPANTS", 20),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASSWORD", ""),
		MailFrom: getEnv("MAIL_FROM", "inscription@example.org"),

		ListAPIBaseURL:  getEnv("LIST_API_BASE_URL", ""),
		ListAPIKey:      getEnv("LIST_API_KEY", ""),
		MailingListName: getEnv("MAILING_LIST_NAME", ""),
	}

	if cfg.MailingListName == "" {
		cfg.MailingListName = fmt.Sprintf("participants%d", cfg.SeasonYear)
	}

	tiers, err := ParseTiers(getEnv("PRICE_TIERS", "0-6:80:10,6-12:160:20,12-18:240:30,18-999:325:40"))
	if err != nil {
		log.Fatalf("PRICE_TIERS is invalid: %v", err)
	}
	cfg.PriceTiers = tiers

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set. It is mandatory in production.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters long.")
	}
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST is not set, outgoing mail will only be logged.")
	}
	if cfg.ListAPIBaseURL == "" {
		log.Warn("LIST_API_BASE_URL is not set, mailing-list sync is disabled.")
	}

	return cfg
}

// ParseTiers parses the PRICE_TIERS format: comma-separated
// "minAge-maxAge:allDaysPrice:upfrontFee" bands, e.g. "6-12:160:20".
// Age bands are minAge inclusive, maxAge exclusive.
func ParseTiers(s string) ([]pricing.Tier, error) {
	var tiers []pricing.Tier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("tier %q: want minAge-maxAge:allDaysPrice:upfrontFee", part)
		}
		ages := strings.Split(fields[0], "-")
		if len(ages) != 2 {
			return nil, fmt.Errorf("tier %q: bad age range %q", part, fields[0])
		}
		minAge, err := strconv.Atoi(strings.TrimSpace(ages[0]))
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", part, err)
		}
		maxAge, err := strconv.Atoi(strings.TrimSpace(ages[1]))
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", part, err)
		}
		allDays, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", part, err)
		}
		upfront, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", part, err)
		}
		tiers = append(tiers, pricing.Tier{
			MinAge:       minAge,
			MaxAge:       maxAge,
			AllDaysPrice: allDays,
			UpfrontFee:   upfront,
		})
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tiers configured")
	}
	return tiers, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}

func getEnvDate(key, def string) time.Time {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		log.Fatalf("%s must be YYYY-MM-DD, got %q", key, v)
	}
	return t
}

func getEnvDateTime(key, def string) time.Time {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		log.Fatalf("%s must be RFC 3339, got %q", key, v)
	}
	return t
}
