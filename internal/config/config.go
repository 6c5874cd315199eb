package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	InputDir  string
	OutputDir string

	CSVDelimiter rune
	CSVNewline   string

	ExtractWorkers int

	WatchIntervalSec int
	WatchAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "rover.db")),
		InputDir:  getEnv("INPUT_DIR", filepath.Join(cwd, "data", "inbox")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		CSVDelimiter: getEnvRune("CSV_DELIMITER", ','),
		CSVNewline:   getEnvNewline("CSV_NEWLINE", "\r"),

		ExtractWorkers: getEnvInt("EXTRACT_WORKERS", 1),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),
		WatchAutoExport:  getEnvBool("WATCH_AUTO_EXPORT", true),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.CSVDelimiter {
	case '"', '\r', '\n', 0:
		return fmt.Errorf("invalid CSV_DELIMITER: %q", c.CSVDelimiter)
	}
	if c.CSVNewline == "" {
		return fmt.Errorf("CSV_NEWLINE must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvRune(key string, fallback rune) rune {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	if value == `\t` {
		return '\t'
	}
	return []rune(value)[0]
}

// getEnvNewline accepts the escaped forms \r, \n and \r\n as well as raw control characters.
func getEnvNewline(key, fallback string) string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	return strings.NewReplacer(`\r`, "\r", `\n`, "\n").Replace(value)
}
