package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	GeminiAPIKey          string
	GeminiModel           string
	InsightsTTLSeconds    int
	InsightsBillLimit     int
	KafkaBrokers          string
	KafkaTopic            string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	insightsTTL, err := strconv.Atoi(getEnv("INSIGHTS_TTL_SECONDS", "300"))
	if err != nil || insightsTTL < 1 {
		insightsTTL = 300
	}
	billLimit, err := strconv.Atoi(getEnv("INSIGHTS_BILL_LIMIT", "200"))
	if err != nil || billLimit < 1 {
		billLimit = 200
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		GeminiAPIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		InsightsTTLSeconds:    insightsTTL,
		InsightsBillLimit:     billLimit,
		KafkaBrokers:          os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "billquick-events"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
