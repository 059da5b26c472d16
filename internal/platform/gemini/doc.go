// Package gemini provides an implementation of the completion.Service
// interface that uses Google's Gemini API through the google.golang.org/genai
// client library.
//
// This package is an infrastructure adapter: it translates a plain prompt
// into a GenerateContent request and the response back into reply text,
// without exposing the details of the external service to the pipeline.
//
// Throttling responses (HTTP 429 / RESOURCE_EXHAUSTED) are reported as
// *completion.RateLimitError, carrying the RetryInfo delay when the API
// provides one. Retrying is the responsibility of completion.Client.
package gemini
