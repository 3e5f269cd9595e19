package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when present in the working directory.
const DefaultEnvFile = ".env"

// Load parses environment variables into the provided struct. Values from a
// .env file in the working directory are used as fallbacks; real environment
// variables always win.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	return LoadFiles(cfg, DefaultEnvFile)
}

// LoadFiles is like Load but reads fallbacks from the given dotenv files.
// Missing files are skipped; later files override earlier ones.
func LoadFiles(cfg any, files ...string) error {
	merged := make(map[string]string)
	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read env file %s: %w", f, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	for k, v := range env.ToMap(os.Environ()) {
		merged[k] = v
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: merged}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
