// Command telemetry-gen floods a telemetry backend with realistic sample
// traffic — feature events, API calls, metrics across all three kinds, and
// logs across every severity — so dashboards can be validated without
// waiting for real usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/namastexlabs/automagik-telemetry-go/config"
	"github.com/namastexlabs/automagik-telemetry-go/event"
	"github.com/namastexlabs/automagik-telemetry-go/telemetry"
)

var features = []string{
	"list_contacts", "send_message", "create_instance",
	"manage_traces", "view_dashboard", "export_data", "configure_settings",
}

var apiEndpoints = []string{
	"/api/v1/contacts", "/api/v1/messages", "/api/v1/instances",
	"/api/v1/traces", "/api/v1/analytics",
}

var commands = []string{"list", "create", "delete", "update", "sync"}

var logLines = map[event.Severity][]string{
	event.SeverityInfo: {
		"User successfully authenticated",
		"Configuration loaded from environment",
		"Database connection established",
		"Service started successfully",
	},
	event.SeverityWarn: {
		"High memory usage detected (85%)",
		"Slow database query detected (>500ms)",
		"Rate limit approaching threshold",
	},
	event.SeverityError: {
		"Failed to connect to external service",
		"Database query timeout",
		"Invalid user input received",
	},
	event.SeverityFatal: {
		"Out of memory - service crashing",
		"Critical database connection lost",
	},
}

func main() {
	backendName := flag.String("backend", "otlp", "backend to ship through (otlp or clickhouse)")
	endpoint := flag.String("endpoint", "", "override the backend endpoint")
	traces := flag.Int("traces", 20, "number of trace events")
	metrics := flag.Int("metrics", 30, "number of metric points")
	logs := flag.Int("logs", 25, "number of log records")
	errCount := flag.Int("errors", 5, "number of error events")
	delay := flag.Duration("delay", 100*time.Millisecond, "pause between events")
	flag.Parse()

	config.LoadDotenv(".env")

	cfg := config.Config{
		ProjectName: "telemetry-gen",
		Version:     "1.0.0",
		Backend:     config.Backend(*backendName),
		Enabled:     ptr(true),
		Verbose:     ptr(true),
	}
	switch cfg.Backend {
	case config.BackendClickHouse:
		cfg.ClickHouse.Endpoint = *endpoint
	default:
		cfg.Endpoint = *endpoint
	}

	client, err := telemetry.New(cfg)
	if err != nil {
		log.Fatalf("telemetry setup failed: %v", err)
	}

	fmt.Printf("Generating test data via %s backend\n", cfg.Backend)
	generateTraces(client, *traces, *delay)
	generateMetrics(client, *metrics, *delay)
	generateLogs(client, *logs, *delay)
	generateErrors(client, *errCount, *delay)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client.Flush(ctx)
	client.Shutdown(ctx)

	st := client.Status()
	fmt.Printf("Done. session=%s pending=%d\n", st.SessionID, st.Pending)
	os.Exit(0)
}

func generateTraces(client *telemetry.Client, count int, delay time.Duration) {
	fmt.Printf("Generating %d trace events...\n", count)
	for i := 0; i < count; i++ {
		switch i % 3 {
		case 0:
			client.TrackEvent(telemetry.EventFeatureUsed, map[string]any{
				"feature_name": pick(features),
				"user_type":    pick([]string{"admin", "user", "developer"}),
				"success":      rand.Intn(4) != 0,
			})
		case 1:
			client.TrackEvent(telemetry.EventAPIRequest, map[string]any{
				"endpoint":    pick(apiEndpoints),
				"method":      pick([]string{"GET", "POST", "PUT", "DELETE"}),
				"status_code": pick([]int{200, 200, 200, 400, 404, 500}),
				"duration_ms": 50 + rand.Intn(1950),
			})
		default:
			client.TrackEvent(telemetry.EventCommandExecuted, map[string]any{
				"command":    pick(commands),
				"args_count": rand.Intn(6),
				"exit_code":  pick([]int{0, 0, 0, 1}),
			})
		}
		time.Sleep(delay)
	}
}

func generateMetrics(client *telemetry.Client, count int, delay time.Duration) {
	fmt.Printf("Generating %d metrics...\n", count)
	for i := 0; i < count; i++ {
		switch i % 3 {
		case 0:
			client.TrackMetric("system.memory.usage", 40+rand.Float64()*50, event.Gauge, map[string]any{
				"unit": "percent",
				"host": fmt.Sprintf("server-%d", 1+rand.Intn(3)),
			})
		case 1:
			client.TrackMetric("api.requests.total", float64(1+rand.Intn(100)), event.Counter, map[string]any{
				"endpoint": pick(apiEndpoints),
			})
		default:
			client.TrackMetric(telemetry.EventOperationLatency, latencySample(), event.Histogram, map[string]any{
				"operation": pick([]string{"db_query", "api_call", "cache_lookup", "file_read"}),
				"unit":      "ms",
			})
		}
		time.Sleep(delay)
	}
}

// latencySample skews toward fast responses: 70% fast, 25% medium, 5% slow.
func latencySample() float64 {
	switch n := rand.Intn(100); {
	case n < 70:
		return 10 + rand.Float64()*90
	case n < 95:
		return 100 + rand.Float64()*400
	default:
		return 500 + rand.Float64()*1500
	}
}

func generateLogs(client *telemetry.Client, count int, delay time.Duration) {
	fmt.Printf("Generating %d logs...\n", count)
	severities := []event.Severity{
		event.SeverityInfo, event.SeverityWarn, event.SeverityError, event.SeverityFatal,
	}
	weights := []int{60, 25, 12, 3}

	for i := 0; i < count; i++ {
		severity := weighted(severities, weights)
		attrs := map[string]any{
			"source":     pick([]string{"api", "worker", "scheduler", "webhook"}),
			"request_id": fmt.Sprintf("req-%d", 10000+rand.Intn(90000)),
		}
		if severity >= event.SeverityError {
			attrs["error_code"] = pick([]string{"ERR_TIMEOUT", "ERR_NOT_FOUND", "ERR_PERMISSION", "ERR_INTERNAL"})
		}
		client.TrackLog(pick(logLines[severity]), severity, attrs)
		time.Sleep(delay)
	}
}

func generateErrors(client *telemetry.Client, count int, delay time.Duration) {
	fmt.Printf("Generating %d error events...\n", count)
	for i := 0; i < count; i++ {
		client.TrackError(fmt.Errorf("%s", pick(logLines[event.SeverityError])), map[string]any{
			"operation": pick([]string{"send", "sync", "export"}),
		})
		time.Sleep(delay)
	}
}

func pick[T any](options []T) T {
	return options[rand.Intn(len(options))]
}

func weighted[T any](options []T, weights []int) T {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := rand.Intn(total)
	for i, w := range weights {
		if n < w {
			return options[i]
		}
		n -= w
	}
	return options[len(options)-1]
}

func ptr(b bool) *bool { return &b }
