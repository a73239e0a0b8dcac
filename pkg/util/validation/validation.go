package validation

import (
	"fmt"
	"net/url"
	"regexp"
)

var playerNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{2,16}$`)

// ValidPlayerName reports whether name is a well-formed Minecraft player name.
func ValidPlayerName(name string) bool {
	return playerNameRegex.MatchString(name)
}

// ValidHTTPURL returns an error if s is not an absolute http(s) URL.
func ValidHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q, must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
