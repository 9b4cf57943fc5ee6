package logger

import (
	"regexp"
	"strings"
)

const redacted = "***"

var (
	credentialPattern = regexp.MustCompile(
		`(?i)(app_?key|app_?secret|secretkey|account_?no|cano|access_?token|authorization)(["']?\s*[:=]\s*["']?)([^"'&,\s}]+)`,
	)
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`)

	sensitiveKeys = map[string]struct{}{
		"appkey":        {},
		"app_key":       {},
		"appsecret":     {},
		"app_secret":    {},
		"secretkey":     {},
		"cano":          {},
		"account_no":    {},
		"acnt_prdt_cd":  {},
		"authorization": {},
		"access_token":  {},
		"token":         {},
	}
)

// Redact masks credential-like substrings (app keys, secrets, account
// numbers and bearer tokens) in s.
func Redact(s string) string {
	s = credentialPattern.ReplaceAllString(s, "${1}${2}"+redacted)

	return bearerPattern.ReplaceAllString(s, "Bearer "+redacted)
}

// RedactParams returns a copy of params with sensitive keys masked and
// remaining values passed through Redact.
func RedactParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))

	for k, v := range params {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			out[k] = redacted

			continue
		}

		out[k] = Redact(v)
	}

	return out
}
