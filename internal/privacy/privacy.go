// Package privacy strips credentials and host identity from text that
// leaves the process, such as telemetry messages and broker addresses in
// logs.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9+.-]*://\S+`)
	ipv4Pattern  = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	tokenPattern = regexp.MustCompile(`(?i)\b(password|passwd|token|secret|dsn)=\S+`)
)

// ScrubMessage anonymizes URLs and replaces addresses and key=value
// credentials in message.
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = tokenPattern.ReplaceAllString(message, "$1=[REDACTED]")
	message = emailPattern.ReplaceAllString(message, "[EMAIL]")
	return ipv4Pattern.ReplaceAllStringFunc(message, func(ip string) string {
		if _, err := netip.ParseAddr(ip); err != nil {
			return ip
		}
		return "[" + categorizeHost(ip) + "]"
	})
}

// AnonymizeURL maps a URL to a stable hash of its scheme, host category,
// port and path shape. Equal endpoints give equal results.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if u.Port() != "" {
		parts = append(parts, "port-"+u.Port())
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// RedactURL drops credentials, path and query from a URL and keeps
// scheme, host and port, e.g. for logging the broker address. Input that
// does not parse as an absolute URL is returned as is.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// categorizeHost reduces a host to a coarse class.
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast(), addr.IsMulticast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}

	// Domains keep only their TLD
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}

func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		hash := sha256.Sum256([]byte(segment))
		out = append(out, fmt.Sprintf("seg-%x", hash[:4]))
	}
	return strings.Join(out, "/")
}
