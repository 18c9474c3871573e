// Package config loads obsrelay settings from an optional YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables. The recognised variables are:
//   - PORT               server.http_port (default 3000)
//   - HANDS_RELAY_PORT   relay.port (default 8765)
//   - LOG_DIR            server.log.dir (default ./logs)
//
// Secrets never live in the file. server.auth.token_env and
// server.nats.url_env name the variables that hold them (defaults
// OBS_REMOTE_TOKEN and OBS_REMOTE_NATS_URL). An empty token means open mode.
//
// Load(path) applies defaults before unmarshalling, then validates. A
// TokenWatcher reloads the file on change so a rotated token reaches the gate
// without a restart.
package config
