package ratelimit

import "strings"

// unlimited marks endpoints that are never rate limited
var unlimited = EndpointConfig{Path: "/health", Method: "GET"}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Exact matches win over prefix matches; among prefixes the longest wins.
// Returns nil if nothing matches.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == unlimited.Path && method == unlimited.Method {
		match := unlimited
		return &match
	}

	var best *EndpointConfig
	for i := range configs {
		config := &configs[i]
		if config.Method != method {
			continue
		}
		if config.Path == path {
			return config
		}
		if strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			if best == nil || len(config.Path) > len(best.Path) {
				best = config
			}
		}
	}
	return best
}
