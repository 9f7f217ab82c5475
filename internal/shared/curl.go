// Utilities for parsing cURL commands copied from browser DevTools.
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`curl\s+(?:-X\s+\w+\s+)?'(https?://[^']+)'|curl\s+(?:-X\s+\w+\s+)?"(https?://[^"]+)"|curl\s+(?:-X\s+\w+\s+)?(https?://\S+)`)
)

// CurlRequest holds the URL, headers and cookies of a parsed cURL command.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and parses it.
func ParseCurlFile(filepath string) (*CurlRequest, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts URL, headers and cookies.
//
// A cookie passed with -b takes precedence over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlRequest, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	req := &CurlRequest{Headers: make(map[string]string)}

	if m := curlURLRegex.FindStringSubmatch(curlCmd); m != nil {
		req.URL = firstGroup(m)
	}

	var headerCookie string
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := curlCookieRegex.FindStringSubmatch(curlCmd); m != nil {
		req.Cookie = firstGroup(m)
	} else {
		req.Cookie = headerCookie
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return req, nil
}

// Cookies parses the cookie string into [http.Cookie] values.
func (c *CurlRequest) Cookies() ([]*http.Cookie, error) {
	if c.Cookie == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(c.Cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cookie: %v", ErrInvalidInput, err)
	}
	return cookies, nil
}

func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
