package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	BotToken      string

	BonusAmount    float64
	ReferralBonus  float64
	WithdrawMin    float64
	MemberCacheTTL time.Duration
	SessionTimeout time.Duration

	// ForceChannels are chat usernames or "-100..." IDs the user must be a
	// member of. ForceLinks holds optional explicit invite links in the same
	// order (needed for private channels).
	ForceChannels []string
	ForceLinks    []string

	AdminIDs []int64
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "rewards_bot"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),

		BonusAmount:    getEnvFloat("BONUS_AMOUNT", 5),
		ReferralBonus:  getEnvFloat("REF_BONUS", 2),
		WithdrawMin:    getEnvFloat("WITHDRAW_MIN", 100),
		MemberCacheTTL: getEnvDuration("MEMBER_CACHE_TTL", 15*time.Minute),
		SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 10*time.Minute),

		ForceChannels: splitList(getEnv("FORCE_CHANNELS", "")),
		ForceLinks:    splitList(getEnv("FORCE_LINKS", "")),

		AdminIDs: parseIDs(getEnv("ADMIN_IDS", "")),
	}
}

// JoinLink returns the URL for the i-th force channel: the explicit link if
// one was configured, a t.me link for public usernames, or "" for a private
// ID without an invite link.
func (c *Config) JoinLink(i int) string {
	if i < len(c.ForceLinks) && strings.HasPrefix(c.ForceLinks[i], "http") {
		return c.ForceLinks[i]
	}
	ch := c.ForceChannels[i]
	if strings.HasPrefix(ch, "-100") {
		return ""
	}
	return "https://t.me/" + strings.TrimPrefix(ch, "@")
}

func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(raw string) []int64 {
	var out []int64
	for _, part := range splitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Skipping invalid admin id %q", part)
			continue
		}
		out = append(out, id)
	}
	return out
}
