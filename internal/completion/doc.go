// Package completion provides the boundary between the tagging pipeline and
// external AI/LLM text-completion services. It defines the Service port that
// provider adapters (Gemini, OpenAI-compatible, Anthropic) implement, and the
// Client that every pipeline worker uses to issue requests.
//
// The Client owns the rate-limit policy: when a service reports throttling
// through a RateLimitError it waits for the suggested retry-after duration (or
// a default wait when none is usable) and retries the identical prompt,
// without a retry cap. The wait only suspends the calling goroutine and can be
// abandoned by cancelling the context. Every other failure is returned to the
// caller unchanged apart from wrapping.
package completion
