package voicerelay

import (
	"log/slog"
	"net/http"
	"net/url"
)

// NewCheckOrigin allows the app's own origin and requests without an Origin
// header. In development localhost origins are allowed too.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == appOrigin {
			return true
		}
		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("Voice relay origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
