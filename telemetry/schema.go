package telemetry

// Standard event names shared across Automagik projects. Using these keeps
// dashboards queryable across products; arbitrary names are still accepted.
const (
	EventFeatureUsed      = "automagik.feature.used"
	EventAPIRequest       = "automagik.api.request"
	EventCommandExecuted  = "automagik.cli.command"
	EventOperationLatency = "automagik.performance.latency"
	EventErrorOccurred    = "automagik.error"
	EventServiceHealth    = "automagik.health"
)
