// Package openai provides a completion.Service for OpenAI-compatible chat
// completion endpoints (OpenAI itself, OpenRouter, local gateways).
//
// A 429 response is reported as *completion.RateLimitError; the wait is
// taken from the "Please try again in 2s." phrase of the error message,
// falling back to the Retry-After header.
package openai
