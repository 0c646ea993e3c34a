package common

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads secrets from .env style files into the process environment.
// Missing files are skipped; variables already set in the environment win.
func LoadDotEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var loaded []string
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
