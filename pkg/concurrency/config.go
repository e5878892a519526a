package concurrency

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// ConfigSource indicates where the configuration came from
type ConfigSource string

const (
	ConfigSourceEnvVar     ConfigSource = "environment_variable"
	ConfigSourceAutoDetect ConfigSource = "auto_detect"
	ConfigSourceDefault    ConfigSource = "default"
)

// Config holds worker-limit configuration parameters for the engine
type Config struct {
	WorkerLimit   int
	Source        ConfigSource
	IsKubernetes  bool
	EffectiveCPUs int
}

// LoadConfig loads the worker-limit configuration with priority:
// env vars > auto-detection > defaults
func LoadConfig() *Config {
	config := &Config{}

	// Detect if running in Kubernetes
	config.IsKubernetes = isKubernetes()

	// Get effective CPUs (respects cgroup limits)
	config.EffectiveCPUs = runtime.GOMAXPROCS(0)

	// Load WorkerLimit with priority
	if limit := getEnvInt("DAEDALUS_WORKER_LIMIT", 0); limit > 0 {
		config.WorkerLimit = limit
		config.Source = ConfigSourceEnvVar
	} else if multiplier := getEnvInt("DAEDALUS_WORKER_MULTIPLIER", 0); multiplier > 0 {
		config.WorkerLimit = config.EffectiveCPUs * multiplier
		config.Source = ConfigSourceEnvVar
	} else {
		// Auto-detect based on environment
		config.WorkerLimit = getDefaultWorkerLimit(config.IsKubernetes, config.EffectiveCPUs)
		config.Source = ConfigSourceAutoDetect
	}

	// Ensure minimum value
	if config.WorkerLimit < 1 {
		config.WorkerLimit = 1
	}

	return config
}

// isKubernetes detects if the application is running in Kubernetes
func isKubernetes() bool {
	// Kubernetes sets this environment variable in all containers
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// getDefaultWorkerLimit returns sensible defaults based on environment
func getDefaultWorkerLimit(isK8s bool, cpus int) int {
	if isK8s {
		// Conservative for Kubernetes to prevent resource exhaustion
		return cpus * 2
	}
	// More aggressive for bare metal
	return cpus * 4
}

// getEnvInt retrieves an integer from environment variable with default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// String returns a formatted string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerLimit: %d, IsK8s: %t, CPUs: %d, Source: %s}",
		c.WorkerLimit,
		c.IsKubernetes,
		c.EffectiveCPUs,
		c.Source,
	)
}
