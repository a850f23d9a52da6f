// Package config loads the YAML application configuration and handler
// definition files. The file only has to name what differs from the
// defaults; unknown keys are rejected.
package config
