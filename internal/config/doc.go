// Package config loads the groups service configuration.
//
// Configuration is a single YAML document. Values may reference the
// environment with ${VAR} or ${VAR:-default}; "$$" yields a literal
// dollar sign. Durations are Go duration strings such as "30s".
//
//	server:
//	  port: 8080
//	cache:
//	  type: redis
//	  redis:
//	    url: ${REDIS_URL:-redis://localhost:6379/0}
//
// Load applies defaults and validates, returning ValidationErrors that
// name every offending field. Watcher reloads the file on change.
package config
