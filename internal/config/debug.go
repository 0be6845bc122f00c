package config

import "os"

func IsDebug() bool {
	return os.Getenv("VOICEBOT_DEBUG") == "1" || os.Getenv("DEBUG") == "true"
}
