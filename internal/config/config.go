// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	MySQLDSN        string
	RedisAddr       string
	KafkaBrokers    []string
	ShutdownTimeout time.Duration
	MySQLMaxOpen    int
	MySQLMaxIdle    int
	RedisPoolSize   int
}

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		MySQLDSN:        getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/commercehub?parseTime=true"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT_SECONDS", 5),
		MySQLMaxOpen:    atoienv("MYSQL_MAX_OPEN_CONNS", 50),
		MySQLMaxIdle:    atoienv("MYSQL_MAX_IDLE_CONNS", 25),
		RedisPoolSize:   atoienv("REDIS_POOL_SIZE", 100),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}
