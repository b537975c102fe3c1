package config

// Timeout (seconds) of a single HTTP invocation
const HTTP_TIMEOUT = "invoker.http.timeout"

// Timeout (seconds) of a single CLI invocation; the AWS CLI read timeout is 450s
const CLI_TIMEOUT = "invoker.cli.timeout"

// Major version of the AWS CLI (1 or 2); v2 requires raw payload encoding
const AWS_CLI_VERSION = "invoker.aws.cli_version"

// Output adapter for gcloud functions call ("legacy" or "json")
const GOOGLE_OUTPUT_ADAPTER = "invoker.google.output"

// Executable names of the platform CLIs
const AWS_CLI = "invoker.cli.aws"
const GOOGLE_CLI = "invoker.cli.gcloud"
const IBM_CLI = "invoker.cli.ibmcloud"

// Drop responses that do not carry a "version" attribute (true/false)
const REQUIRE_VERSION = "runner.require_version"

// Path of the advisory progress file
const PROGRESS_FILE = "runner.progress_file"

// Maximum number of stage transitions in a pipeline pass (0 = unlimited)
const PIPELINE_MAX_TRANSITIONS = "pipeline.max_transitions"

// Dump each successful run as a JSON file next to the CSV report (true/false)
const REPORT_DUMP_RUNS = "report.dump_runs"

// Prometheus exporter
const METRICS_ENABLED = "metrics.enabled"
const METRICS_PORT = "metrics.port"

// Status API exposed while an experiment runs
const API_ENABLED = "api.enabled"
const API_PORT = "api.port"

// Etcd server hostname
const ETCD_ADDRESS = "etcd.address"

// Archive every collected run on etcd (true/false)
const STORE_ETCD_ENABLED = "store.etcd.enabled"

// OpenTelemetry tracing of invocations (true/false)
const TRACING_ENABLED = "tracing.enabled"

// Log level: debug, info, warn, error
const LOG_LEVEL = "log.level"
