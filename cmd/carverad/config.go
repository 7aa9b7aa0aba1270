// Config loading, grounded on iwtcode-fanucAdapter's internal/config
// package: env vars with defaults, optional .env file via godotenv.
package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	Port            string
	Baud            int
	Bridge          string
	DataDir         string
	LogLevel        string
	StartupCommands string
}

func loadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            env("CARVERA_ADDR", ":9091"),
		Port:            env("CARVERA_PORT", "/dev/ttyUSB0"),
		Baud:            envInt("CARVERA_BAUD", 115200),
		Bridge:          env("CARVERA_BRIDGE_URL", ""),
		DataDir:         env("CARVERA_DATA_DIR", "./data"),
		LogLevel:        env("CARVERA_LOG_LEVEL", "info"),
		StartupCommands: env("CARVERA_STARTUP_COMMANDS", ""),
	}
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
