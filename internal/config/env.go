package config

import "time"

// Env key constants. All orchestrator configuration env vars use ORCHESTRATOR_ prefix;
// duration values support explicit units (e.g. 5m, 40s, 2h).

// GCP project that hosts the demo instances. Required.
const envKeyGCPProject = "ORCHESTRATOR_GCP_PROJECT"

// GCE zone for the demo instances.
const envKeyGCPZone = "ORCHESTRATOR_GCP_ZONE"

// GCE machine type for the demo instances.
const envKeyMachineType = "ORCHESTRATOR_MACHINE_TYPE"

// Name prefix for all managed instances; the orphan sweep deletes
// everything under it.
const envKeyNamePrefix = "ORCHESTRATOR_NAME_PREFIX"

// Log level: debug, info, warn, error.
const envKeyLogLevel = "ORCHESTRATOR_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "ORCHESTRATOR_LOG_FORMAT"

// Port for the public API and health HTTP server.
const envKeyHTTPPort = "ORCHESTRATOR_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "ORCHESTRATOR_METRICS_PORT"

// Path of the deployment audit log file. Created on first deploy.
const envKeyAuditLogPath = "ORCHESTRATOR_AUDIT_LOG_PATH"

// Directory holding per-project secret overlays (projects/<id>.env).
const envKeySecretsDir = "ORCHESTRATOR_SECRETS_DIR"

// Verification endpoint for deploy tokens.
const envKeyVerifyEndpoint = "ORCHESTRATOR_VERIFY_ENDPOINT"

// Verification secret. When unset, token verification is skipped.
const envKeyVerifySecret = "ORCHESTRATOR_VERIFY_SECRET"

// Cron expression for the orphan-sweep schedule (e.g. */5 * * * *).
const envKeySweepSchedule = "ORCHESTRATOR_SWEEP_SCHEDULE"

// IANA timezone for the sweep schedule (e.g. America/New_York).
const envKeySweepTZ = "ORCHESTRATOR_SWEEP_TZ"

// How long a deployed instance lives before forced eviction.
// Units: s, m, h (e.g. 2h).
const (
	envKeyInstanceLifetime = "ORCHESTRATOR_INSTANCE_LIFETIME"
	envMinInstanceLifetime = time.Minute
)

// Max deploys admitted inside one trailing rate window.
const envKeyRateCeiling = "ORCHESTRATOR_RATE_CEILING"

// Trailing window for the deploy rate limit. Units: s, m, h (e.g. 1h).
const (
	envKeyRateWindow = "ORCHESTRATOR_RATE_WINDOW"
	envMinRateWindow = time.Minute
)

// Timeout for a single blocking call to the compute provider.
// Units: s, m, h (e.g. 90s).
const (
	envKeyGatewayCallTimeout = "ORCHESTRATOR_GATEWAY_CALL_TIMEOUT"
	envMinGatewayCallTimeout = 10 * time.Second
)
