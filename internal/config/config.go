// Package config loads each service's configuration from the
// environment, the way the teacher's cmd/mint/mint.go configFromEnv did:
// manual os.LookupEnv/strconv parsing with sensible fallbacks, plus an
// optional local .env file for development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory if present.
// A missing file is not an error; every other read failure is.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Base holds the fields every service binary needs regardless of its
// domain: where to listen, where to keep its sqlite file and log file,
// and how chatty to be.
type Base struct {
	Port     int
	DBPath   string
	LogPath  string
	LogLevel string
}

// BaseFromEnv reads the common fields, defaulting DBPath/LogPath under
// $HOME/.wildcat/<service> when unset.
func BaseFromEnv(service string, defaultPort int) (Base, error) {
	port := defaultPort
	if portEnv, ok := os.LookupEnv("PORT"); ok {
		p, err := strconv.Atoi(portEnv)
		if err != nil {
			return Base{}, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	defaultDir, err := defaultStateDir(service)
	if err != nil {
		return Base{}, err
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(defaultDir, "state.db")
	}

	logPath := os.Getenv("LOG_PATH")
	if logPath == "" {
		logPath = filepath.Join(defaultDir, service+".log")
	}

	logLevel := "info"
	if lvl := strings.ToLower(os.Getenv("LOG")); lvl != "" {
		logLevel = lvl
	}

	return Base{
		Port:     port,
		DBPath:   dbPath,
		LogPath:  logPath,
		LogLevel: logLevel,
	}, nil
}

func defaultStateDir(service string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wildcat", service), nil
}

// EnsureStateDir creates the directory a Base's DBPath/LogPath live in.
func EnsureStateDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// EnvUint parses a uint64 env var, falling back to def when unset.
func EnvUint(name string, def uint64) (uint64, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// EnvBool parses a boolean-ish env var ("true"/"false", case-insensitive),
// falling back to def when unset.
func EnvBool(name string, def bool) bool {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	return strings.ToLower(raw) == "true"
}

// EnvSeconds parses an integer env var (a count of seconds or another
// time unit chosen by the caller), falling back to def when unset.
func EnvSeconds(name string, def int) (int, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// RequireEnv returns the named env var or an error if it is unset or empty.
func RequireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%s must be set", name)
	}
	return v, nil
}

// EnvString returns the named env var, or def when unset.
func EnvString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
