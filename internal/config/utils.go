package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

func validateURL(urlStr, fieldName string) error {
	if urlStr == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s must have http or https scheme", fieldName)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}

	return nil
}

// Origin returns the normalised scheme://host of rawURL, or "" when it cannot
// be parsed.
func Origin(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return ""
	}
	return JoinOrigin(parsedURL.Scheme, parsedURL.Host)
}

// JoinOrigin builds an origin with a lowercase scheme and host and without the
// scheme's default port, so origins from config and from requests compare equal.
func JoinOrigin(scheme, host string) string {
	scheme = strings.ToLower(scheme)
	host = strings.ToLower(host)

	if hostname, port, err := net.SplitHostPort(host); err == nil {
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			host = hostname
			if strings.Contains(hostname, ":") {
				host = "[" + hostname + "]"
			}
		}
	}

	return scheme + "://" + host
}
