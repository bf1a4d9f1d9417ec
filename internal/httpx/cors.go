package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy controls the cross-origin headers for the browser frontend.
// An empty AllowedOrigins disables CORS handling entirely.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type corsResponder struct {
	policy  CORSPolicy
	origins []string
	methods string
	headers string
	maxAge  string
}

func WithCORS(policy CORSPolicy) Middleware {
	if len(policy.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := &corsResponder{
		policy:  policy,
		origins: trimAll(policy.AllowedOrigins),
		methods: strings.Join(trimAll(policy.AllowedMethods), ", "),
		headers: strings.Join(trimAll(policy.AllowedHeaders), ", "),
	}
	if secs := int(policy.MaxAge.Seconds()); secs > 0 {
		c.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow, ok := c.resolve(origin)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			c.writeHeaders(w.Header(), allow)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolve maps a request origin to the Allow-Origin value to echo back.
// A "*" entry stays literal unless credentials are allowed, where the
// wildcard is forbidden and the concrete origin is echoed instead.
func (c *corsResponder) resolve(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	for _, allowed := range c.origins {
		switch {
		case allowed == "*" && c.policy.AllowCredentials:
			return origin, true
		case allowed == "*":
			return "*", true
		case strings.EqualFold(allowed, origin):
			return origin, true
		}
	}
	return "", false
}

func (c *corsResponder) writeHeaders(h http.Header, allowOrigin string) {
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	if c.policy.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
