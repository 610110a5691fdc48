package types

type contextKey string

// EnvKey carries an explicit environment ([]string of KEY=VALUE) for
// child processes and executable lookups.
const EnvKey contextKey = "env"

// ConfigKey carries the loaded *config.Config through command contexts.
const ConfigKey contextKey = "config"
