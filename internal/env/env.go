package env

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// Load reads each dotenv file that exists. Variables already in the process
// environment are left alone, and earlier files win over later ones.
func Load(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("dotenv load failed", "path", p, "error", err)
		}
	}
}
