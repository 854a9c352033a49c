package event

import (
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// SDK identification reported in resource attributes.
const (
	SDKName    = "automagik-telemetry-go"
	SDKVersion = "0.2.0"
)

// Resource describes the process emitting telemetry. It is built once at
// client construction and shared read-only by every event the client
// produces.
type Resource struct {
	ProjectName    string
	Version        string
	Organization   string
	OS             string
	OSVersion      string
	Architecture   string
	RuntimeName    string
	RuntimeVersion string
	SessionID      string
	UserIDHash     string
	IsContainer    bool
}

// NewResource fills in process-level facts and mints a fresh session ID.
// The user ID hash comes from the configuration layer, which owns the
// anonymous-identity file.
func NewResource(project, version, organization, userIDHash string) Resource {
	return Resource{
		ProjectName:    project,
		Version:        version,
		Organization:   organization,
		OS:             runtime.GOOS,
		OSVersion:      osRelease(),
		Architecture:   runtime.GOARCH,
		RuntimeName:    "go",
		RuntimeVersion: strings.TrimPrefix(runtime.Version(), "go"),
		SessionID:      uuid.NewString(),
		UserIDHash:     userIDHash,
		IsContainer:    inContainer(),
	}
}

func osRelease() string {
	if raw, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		return strings.TrimSpace(string(raw))
	}
	return ""
}

func inContainer() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
