// Package search adapts an external full-text search provider into a tool the
// stage executor can call. It scopes queries to job sites and reduces returned
// markdown to plain, link-free text.
package search

import (
	"regexp"
	"strings"
)

var (
	escapesAndNewlines = regexp.MustCompile(`\\+|[\r\n]+`)
	linksAndURLs       = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)|https?://\S*`)
)

// BuildQuery scopes query to the given domains with site: operators.
// With no domains the query is returned unchanged.
func BuildQuery(query string, domains []string) string {
	if len(domains) == 0 {
		return query
	}
	sites := make([]string, 0, len(domains))
	for _, domain := range domains {
		sites = append(sites, "site:"+domain)
	}
	return "(" + strings.Join(sites, " OR ") + ") " + query
}

// Sanitize strips backslashes, line breaks, markdown links and bare URLs from markdown.
func Sanitize(markdown string) string {
	cleaned := strings.TrimSpace(escapesAndNewlines.ReplaceAllString(markdown, ""))
	// removing one link can splice a new URL together, so repeat until stable
	for {
		next := linksAndURLs.ReplaceAllString(cleaned, "")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return strings.TrimSpace(cleaned)
}
