package global

import (
	"os"
	"strconv"
	"strings"

	"CBProject/logger"
	"CBProject/tools/ids"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	GatewayID string
	NodeID    int64

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// live delivery tuning
	FanoutWorkers int
	FanoutQueue   int
	SendQueueSize int
}

var conf *Config

// Init loads configuration once. Outside production a .env file is honored.
func Init() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			logger.Infof("no .env file found, using environment variables")
		}
	}

	conf = &Config{
		Env:           env,
		Port:          getEnv("PORT", "8080"),
		GatewayID:     getEnv("GATEWAY_ID", "msg_gw-1"),
		NodeID:        int64(getEnvAsInt("NODE_ID", 1)),
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:       getEnv("MONGO_DB", "collegebuddy"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		FanoutWorkers: getEnvAsInt("FANOUT_WORKERS", 4),
		FanoutQueue:   getEnvAsInt("FANOUT_QUEUE", 4096),
		SendQueueSize: getEnvAsInt("SEND_QUEUE_SIZE", 256),
	}

	if strings.ToLower(env) == "production" && conf.JWTSecret == "" {
		logger.Errorf("JWT_SECRET must be set in production")
		os.Exit(1)
	}

	ids.SetNodeID(conf.NodeID)
	return conf
}

// Conf returns the loaded configuration; Init must have run.
func Conf() *Config {
	if conf == nil {
		panic("global.Init not called")
	}
	return conf
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
