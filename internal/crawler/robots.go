package crawler

import (
	"fmt"
	"net/url"

	"github.com/temoto/robotstxt"
)

// RobotsReport answers robots.txt questions for one user agent. The pipeline
// only reports on it; nothing is filtered.
type RobotsReport struct {
	group *robotstxt.Group
}

// ParseRobots parses a robots.txt response for userAgent.
func ParseRobots(statusCode int, body []byte, userAgent string) (*RobotsReport, error) {
	data, err := robotstxt.FromStatusAndBytes(statusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return &RobotsReport{group: data.FindGroup(userAgent)}, nil
}

// Allowed reports whether rawURL's path is permitted. Unparseable URLs are disallowed.
func (r *RobotsReport) Allowed(rawURL string) bool {
	if r == nil || r.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return r.group.Test(p)
}

// Disallowed returns the subset of urls the rules would block, in order.
func (r *RobotsReport) Disallowed(urls []string) []string {
	var out []string
	for _, u := range urls {
		if !r.Allowed(u) {
			out = append(out, u)
		}
	}
	return out
}
