package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	GinMode        string
	EndpointPrefix string

	DatabaseURL   string
	RunMigrations bool

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string

	ConsulAddr  string
	ServiceName string
	ServiceHost string

	GRPCPort string
}

// Load reads the given env files (".env" when none are given) and then the
// process environment. A missing env file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        os.Getenv("GIN_MODE"),
		EndpointPrefix: getEnv("SERVICE_ENDPOINT_PREFIX", "/api"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		ConsulAddr:     os.Getenv("CONSUL_ADDR"),
		ServiceName:    getEnv("SERVICE_NAME", "orders"),
		ServiceHost:    getEnv("SERVICE_HOST", "localhost"),
		GRPCPort:       os.Getenv("GRPC_PORT"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	cfg.RunMigrations, err = strconv.ParseBool(getEnv("RUN_MIGRATIONS", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("RUN_MIGRATIONS: %w", err)
	}
	cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "8h"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is not set")
	}
	if !strings.HasPrefix(cfg.EndpointPrefix, "/") {
		cfg.EndpointPrefix = "/" + cfg.EndpointPrefix
	}
	return cfg, nil
}

// ServicePort returns Port as a number for service registration.
func (c Config) ServicePort() (int, error) {
	return strconv.Atoi(c.Port)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
