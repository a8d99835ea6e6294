// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"net/url"
	"strings"
)

// ExtractDomain extracts the domain (host) from a URL string.
// Returns the domain without protocol, or the original URL if parsing fails.
// Examples:
//   - "https://example.com/path" -> "example.com"
//   - "http://subdomain.example.com:8080/path" -> "subdomain.example.com"
func ExtractDomain(urlString string) string {
	parsed, err := url.Parse(urlString)
	if err != nil {
		return urlString
	}

	if parsed.Hostname() != "" {
		return parsed.Hostname()
	}

	if parsed.Host != "" {
		return parsed.Host
	}

	return urlString
}

// IsHTTPSURLInDomains reports whether rawURL is an https URL whose host is one
// of domains or a subdomain of one. Matching is case-insensitive.
func IsHTTPSURLInDomains(rawURL string, domains ...string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(parsed.Scheme, "https") {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimPrefix(domain, "."))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
