// Package middleware provides the gin middleware used by the groups
// service: request ids, access logging, panic recovery, tracing, request
// metrics, rate limiting and request body limits.
package middleware
