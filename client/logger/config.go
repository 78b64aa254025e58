package logger

import "strings"

// Config provides a method for getting a logging level for a particular
// namespace.
type Config interface {
	// LevelForNamespace returns a logging Level for a particular namespace.
	LevelForNamespace(namespace string) Level
}

// ConfigMap reads the configuration from a CSV string, for example from an
// environment variable: "peer:debug,subscriber:trace,info".
type ConfigMap map[string]Level

// NewConfigMapFromString parses the provided string and returns a Config.
func NewConfigMapFromString(stringConfig string) Config {
	if stringConfig == "" {
		return nil
	}

	configSlice := strings.Split(stringConfig, ",")

	ret := make(ConfigMap, len(configSlice))

	for _, ns := range configSlice {
		level := LevelInfo

		if index := strings.LastIndex(ns, ":"); index > -1 {
			if cfgLevel, ok := LevelFromString(ns[index+1:]); ok {
				level = cfgLevel
				ns = ns[:index]
			}
		}

		ret[ns] = level
	}

	return ret
}

// LevelForNamespace implements Config.
func (c ConfigMap) LevelForNamespace(namespace string) Level {
	if level, ok := c[namespace]; ok {
		return level
	}

	// Check only the last part of the namespace.
	if index := strings.LastIndex(namespace, ":"); index > -1 {
		if level, ok := c[namespace[index+1:]]; ok {
			return level
		}
	}

	// Return configuration for the root logger.
	return c[""]
}
