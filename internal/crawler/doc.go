// Package crawler defines the product domain types, the ports the pipeline
// depends on, and the small pure helpers (URL classification, robots.txt
// reporting) shared across subsystems.
package crawler
