// Package server exposes the groups transformer over HTTP.
//
// Routes:
//
//	POST /api/v1/groups/transform  reshape a grouped result set into a tree
//	POST /api/v1/groups/merge      combine trees with a merge strategy
//	GET  /health                   liveness
//	GET  /ready                    readiness, including the cache backend
//	GET  /metrics                  Prometheus exposition, when enabled
package server
