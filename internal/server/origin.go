package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originPolicy decides which browser origins may open a websocket. A "*"
// entry admits every origin, including requests that send none.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      *slog.Logger
}

func newOriginPolicy(origins []string, log *slog.Logger) *originPolicy {
	p := &originPolicy{allowed: make(map[string]struct{}, len(origins)), log: log}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			p.allowAll = true
			continue
		}

		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}

		p.allowed[normalizedOrigin] = struct{}{}
	}

	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

func (p *originPolicy) allows(r *http.Request) bool {
	return p.allowsOrigin(r.Header.Get("Origin"))
}

// allowsOrigin applies the policy to a raw Origin header value.
func (p *originPolicy) allowsOrigin(originHeader string) bool {
	if p.allowAll {
		return true
	}

	if originHeader == "" {
		return false
	}

	normalizedOrigin, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	_, exists := p.allowed[normalizedOrigin]
	return exists
}

// corsAllows is the CORS origin validator. Requests without an Origin are
// not cross-origin and get no CORS headers.
func (p *originPolicy) corsAllows(origin string) bool {
	return origin != "" && p.allowsOrigin(origin)
}

// check is installed as the upgrader's CheckOrigin.
func (p *originPolicy) check(r *http.Request) bool {
	if p.allows(r) {
		return true
	}

	p.log.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}
