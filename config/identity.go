package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/namastexlabs/automagik-telemetry-go/privacy"
)

const (
	identityDirName = ".automagik"
	identityFile    = "user_id"
	optOutFileName  = ".automagik-no-telemetry"
)

// CI environment variables that auto-disable telemetry.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "TRAVIS", "JENKINS", "GITLAB_CI", "CIRCLECI"}

// UserID returns the anonymous user identifier, creating and persisting a
// fresh UUID under ~/.automagik/user_id on first use. When the home
// directory is unavailable or unwritable it falls back to an in-memory ID;
// identity continuity is best-effort, never a failure.
func UserID() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return uuid.NewString()
	}
	path := filepath.Join(home, identityDirName, identityFile)

	if raw, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		_ = os.WriteFile(path, []byte(id), 0o600)
	}
	return id
}

// UserIDHash returns the truncated SHA-256 of the anonymous user ID. Only
// the hash ever leaves the machine.
func UserIDHash() string {
	return privacy.HashValue(UserID())
}

// DetectEnabled applies the opt-in policy when neither the caller nor the
// environment decided. Telemetry is strictly opt-in: silence means disabled.
func DetectEnabled() bool {
	return false
}

// ShouldPrompt reports whether an interactive opt-in prompt makes sense:
// nobody has decided yet, and this is a real user terminal rather than a CI
// or development environment.
func ShouldPrompt() bool {
	if os.Getenv(EnvEnabled) != "" {
		return false
	}
	return !optOutFileExists() && !inCI() && !inDevEnvironment()
}

func inCI() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

func inDevEnvironment() bool {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "development", "dev", "test", "testing":
		return true
	}
	return false
}

// Enable records the user's opt-in by removing the opt-out file if present.
func Enable() {
	if path, ok := optOutPath(); ok {
		_ = os.Remove(path)
	}
}

// Disable records a permanent opt-out by touching ~/.automagik-no-telemetry.
func Disable() {
	if path, ok := optOutPath(); ok {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
			f.Close()
		}
	}
}

// OptedOut reports whether the opt-out file exists.
func OptedOut() bool { return optOutFileExists() }

func optOutPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, optOutFileName), true
}

func optOutFileExists() bool {
	path, ok := optOutPath()
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
