// Package anthropic provides a completion.Service backed by the Anthropic
// Messages API via github.com/anthropics/anthropic-sdk-go.
//
// The SDK's own retry loop is disabled so that throttling surfaces as a
// *completion.RateLimitError (with the retry-after header as hint) and the
// completion.Client stays the single owner of the retry policy.
package anthropic
