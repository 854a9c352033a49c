package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment variables honored by Resolve.
const (
	EnvEnabled  = "AUTOMAGIK_TELEMETRY_ENABLED"
	EnvEndpoint = "AUTOMAGIK_TELEMETRY_ENDPOINT"
	EnvVerbose  = "AUTOMAGIK_TELEMETRY_VERBOSE"
	EnvTimeout  = "AUTOMAGIK_TELEMETRY_TIMEOUT"
)

// Switch is a bool that accepts the usual CLI spellings: true/false, 1/0,
// yes/no, on/off, any case. Unrecognized values read as false.
type Switch bool

func (s *Switch) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "1", "true", "yes", "on":
		*s = true
	default:
		*s = false
	}
	return nil
}

type envOverrides struct {
	Enabled  *Switch `env:"AUTOMAGIK_TELEMETRY_ENABLED"`
	Endpoint *string `env:"AUTOMAGIK_TELEMETRY_ENDPOINT"`
	Verbose  *Switch `env:"AUTOMAGIK_TELEMETRY_VERBOSE"`
}

type envTimeout struct {
	Timeout *int `env:"AUTOMAGIK_TELEMETRY_TIMEOUT"`
}

type resolvedEnv struct {
	envOverrides
	Timeout *int
}

// fromEnv reads the override variables. A malformed value is ignored rather
// than failing resolution; a broken environment should never take down an
// application's telemetry path at startup.
func fromEnv() resolvedEnv {
	var out resolvedEnv
	// Switch and string fields cannot fail to parse.
	_ = env.Parse(&out.envOverrides)

	var t envTimeout
	if err := env.Parse(&t); err == nil && t.Timeout != nil && *t.Timeout > 0 {
		out.Timeout = t.Timeout
	}
	return out
}

// LoadDotenv loads variables from the given .env files (default ".env")
// without overriding values already present in the environment. Missing
// files are not an error.
func LoadDotenv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}
