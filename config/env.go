package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the process environment if one exists
// at path, before the SECAGG_* overrides in LoadCoordinatorConfig/
// LoadClientConfig are read. A missing file is not an error — .env is an
// optional convenience for local runs, not a required configuration
// source.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
