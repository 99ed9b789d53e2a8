// Package api serves the crawler's operational endpoints: a liveness probe and
// the Prometheus scrape handler.
package api
