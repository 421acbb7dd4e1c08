// Package providers implements the fallback policy (component H) and a
// circuit-breaker/retry failover orchestrator over llm.Provider,
// grounded on the teacher's internal/agent/failover.go.
package providers

import "strings"

// Availability is the availability input to ResolveFallback: which
// alternate surfaces are currently usable.
type Availability struct {
	CodexAvailable     bool
	GeminiCLIAvailable bool
	ClaudeCLIAvailable bool
}

// FallbackResult is the outcome of ResolveFallback: the provider_id to
// fall back to, or a nil Value when nothing is available.
type FallbackResult struct {
	Value *string
}

func result(v string) FallbackResult { return FallbackResult{Value: &v} }

// ResolveFallback implements resolve_fallback(provider_id, error_text,
// availability) per spec.md §4.8's rule table, first match wins. It is
// distinct from FailoverOrchestrator below: this is a pure lookup used
// to pick a *different surface* (e.g. a CLI companion) once a
// subscription-tier provider has failed outright, not a retry/circuit
// breaker over equivalent API providers.
func ResolveFallback(providerID, errorText string, availability Availability) FallbackResult {
	id := strings.ToLower(providerID)
	errLower := strings.ToLower(errorText)

	isChatGPTPlus := strings.Contains(id, "chatgpt-plus") || strings.Contains(id, "chatgpt-subscription")
	isChatGPT := strings.HasPrefix(id, "chatgpt-")

	subscriptionAuthFailed := strings.Contains(errorText, "SUBSCRIPTION_UPSTREAM_AUTH_FAILED") ||
		strings.Contains(errLower, "invalid subscription")
	anySubscriptionOrAuthFailure := subscriptionAuthFailed ||
		strings.Contains(errLower, "auth") || strings.Contains(errLower, "subscription")

	switch {
	case isChatGPTPlus && subscriptionAuthFailed && availability.CodexAvailable:
		return result("chatgpt-codex")
	case isChatGPT && anySubscriptionOrAuthFailure && !availability.CodexAvailable && availability.GeminiCLIAvailable:
		return result("gemini-cli")
	case isChatGPT && anySubscriptionOrAuthFailure && !availability.CodexAvailable && !availability.GeminiCLIAvailable && availability.ClaudeCLIAvailable:
		return result("claude-cli")
	case !availability.CodexAvailable && !availability.GeminiCLIAvailable && !availability.ClaudeCLIAvailable:
		return FallbackResult{Value: nil}
	default:
		return FallbackResult{Value: nil}
	}
}
