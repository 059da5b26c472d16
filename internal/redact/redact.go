// Package redact strips credentials from strings before they are logged.
// Completion-service errors can echo request URLs or headers carrying API
// keys, and database errors can echo connection strings.
package redact

import (
	"log/slog"
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules run in order; provider key shapes come before the generic key=value
// rule so the more specific placeholder wins.
var rules = []rule{
	// user:password@ in database URLs
	{
		pattern:     regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis)://[^@\s/]+@`),
		replacement: "${1}://" + RedactedCredentialPlaceholder + "@",
	},
	// password=... in DSNs
	{
		pattern:     regexp.MustCompile(`(?i)\b(password|passwd|pwd)=\S+`),
		replacement: "${1}=" + RedactedCredentialPlaceholder,
	},
	// Anthropic and OpenAI secret keys
	{
		pattern:     regexp.MustCompile(`\bsk-(?:ant-)?[A-Za-z0-9_\-]{16,}`),
		replacement: RedactedKeyPlaceholder,
	},
	// Google API keys, as sent by the Gemini client
	{
		pattern:     regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`),
		replacement: RedactedKeyPlaceholder,
	},
	// Authorization: Bearer <token>
	{
		pattern:     regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9_\-.~+/=]{8,}`),
		replacement: "${1} " + RedactedTokenPlaceholder,
	},
	// key=..., api_key: ..., x-api-key=... in URLs, headers and messages
	{
		pattern:     regexp.MustCompile(`(?i)\b((?:x-)?(?:api[_-]?)?key|token|secret)(["']?\s*[:=]\s*["']?)[A-Za-z0-9_\-.~+/]{8,}`),
		replacement: "${1}${2}" + RedactedKeyPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// ErrorAttr returns an "error" log attribute carrying the redacted message.
func ErrorAttr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
