package providers

import "testing"

func TestResolveFallback_ChatGPTPlusToCodex(t *testing.T) {
	result := ResolveFallback("chatgpt-plus", "SUBSCRIPTION_UPSTREAM_AUTH_FAILED", Availability{CodexAvailable: true})
	if result.Value == nil || *result.Value != "chatgpt-codex" {
		t.Fatalf("expected chatgpt-codex, got %+v", result)
	}
}

func TestResolveFallback_ChatGPTToGeminiCLI(t *testing.T) {
	result := ResolveFallback("chatgpt-free", "invalid subscription", Availability{GeminiCLIAvailable: true})
	if result.Value == nil || *result.Value != "gemini-cli" {
		t.Fatalf("expected gemini-cli, got %+v", result)
	}
}

func TestResolveFallback_ChatGPTToClaudeCLI(t *testing.T) {
	result := ResolveFallback("chatgpt-free", "auth failure", Availability{ClaudeCLIAvailable: true})
	if result.Value == nil || *result.Value != "claude-cli" {
		t.Fatalf("expected claude-cli, got %+v", result)
	}
}

func TestResolveFallback_NoneAvailable(t *testing.T) {
	result := ResolveFallback("chatgpt-plus", "anything", Availability{})
	if result.Value != nil {
		t.Fatalf("expected nil value, got %+v", result)
	}
}

func TestResolveFallback_NonChatGPTProviderNoRule(t *testing.T) {
	result := ResolveFallback("anthropic-direct", "server error", Availability{CodexAvailable: true})
	if result.Value != nil {
		t.Fatalf("expected no rule to fire for a non-chatgpt provider, got %+v", result)
	}
}
