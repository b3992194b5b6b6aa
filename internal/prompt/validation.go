package prompt

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ValidateServerAddress accepts an empty answer (keep the current address) or
// a host with an optional http(s) scheme.
func ValidateServerAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return errors.New("enter a host such as localhost:8317")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("address must use http or https")
	}
	return nil
}

var projectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)

// ValidateProjectID accepts an empty answer or a Google Cloud project id.
func ValidateProjectID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || projectIDPattern.MatchString(s) {
		return nil
	}
	return errors.New("project ids are 6-30 lowercase letters, digits or hyphens")
}
