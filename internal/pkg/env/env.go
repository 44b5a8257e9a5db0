package env

import (
	"os"

	"github.com/joho/godotenv"
)

var values map[string]string

// GetEnv returns the value for key from the loaded .env file, falling back
// to the process environment and finally to def.
func GetEnv(key, def string) string {
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SetupEnvFile loads the first .env file found relative to the working
// directory. Running from cmd/<binary> or from the repo root both work.
func SetupEnvFile() {
	candidates := []string{
		".env",
		"../../.env",
		"../../../.env",
	}

	for _, path := range candidates {
		loaded, err := godotenv.Read(path)
		if err == nil {
			values = loaded
			return
		}
	}

	// No .env file: container and CI environments configure everything via
	// the process environment.
	values = map[string]string{}
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
