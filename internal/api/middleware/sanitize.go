package middleware

import (
	"net/http"
	"strings"

	"github.com/sp2025/darkwatch/internal/util"
)

const maxLoggedValue = 200

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
	"x-forwarded-for":     {},
}

func truncate(s string) string {
	return util.Truncate(s, maxLoggedValue)
}

// SanitizeHeaders redacts credentials and strips control characters from
// the remaining header values.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			clean = append(clean, truncate(util.SanitizeForLog(v)))
		}
		out[k] = clean
	}
	return out
}

// SanitizePath drops the query string and control characters from p.
func SanitizePath(p string) string {
	if i := strings.IndexByte(p, '?'); i != -1 {
		p = p[:i]
	}
	return truncate(util.SanitizeForLog(p))
}
