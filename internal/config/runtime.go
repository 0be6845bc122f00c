package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/voicebot/pkg/log"
)

const defaultRuntimePath = ".voicebot"

func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("VOICEBOT_RUNTIME_PATH"))
}

// resolveRuntimePath anchors relative paths at the user's home directory.
func resolveRuntimePath(path string) string {
	if path == "" {
		path = defaultRuntimePath
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

// LoadEnv loads <runtime>/.env and then ./.env. Variables already present in
// the environment win, and a missing file is not an error.
func LoadEnv(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	for _, envFile := range []string{filepath.Join(GetRuntimePath(), ".env"), ".env"} {
		if _, err := os.Stat(envFile); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := godotenv.Load(envFile); err != nil {
			logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
			return err
		}
		logger.Debug().Str("path", envFile).Msg("loaded .env file")
	}
	return nil
}
