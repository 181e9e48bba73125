package logger

import "strings"

// secretKeyFragments are substrings of field keys whose values must never be
// logged in full. Credential payloads flow through sync and verification jobs,
// so any key/token-looking field is masked.
var secretKeyFragments = []string{
	"api_key", "apikey", "token", "secret", "password", "credential",
}

// RedactToken masks a secret value for safe logging.
// "sk_live_abcdef123456" becomes "sk_l***": enough prefix to correlate.
// Values of 4 chars or fewer are fully masked.
func RedactToken(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}

func redactSecretValue(key, val string) string {
	lower := strings.ToLower(key)
	for _, frag := range secretKeyFragments {
		if strings.Contains(lower, frag) {
			return RedactToken(val)
		}
	}
	return val
}
