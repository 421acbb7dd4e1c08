package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/daxcore/dax/internal/llm"
)

// FailoverConfig configures the failover orchestrator.
type FailoverConfig struct {
	MaxRetries              int
	RetryBackoff            time.Duration
	MaxRetryBackoff         time.Duration
	FailoverOnRateLimit     bool
	FailoverOnServerError   bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// DefaultFailoverConfig mirrors the teacher's sensible defaults.
func DefaultFailoverConfig() *FailoverConfig {
	return &FailoverConfig{
		MaxRetries:              2,
		RetryBackoff:            100 * time.Millisecond,
		MaxRetryBackoff:         5 * time.Second,
		FailoverOnRateLimit:     true,
		FailoverOnServerError:   true,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// providerState tracks one provider's recent health.
type providerState struct {
	failures      int
	circuitOpen   bool
	circuitOpenAt time.Time
}

func (s *providerState) isAvailable(cfg *FailoverConfig) bool {
	if !s.circuitOpen {
		return true
	}
	return time.Since(s.circuitOpenAt) > cfg.CircuitBreakerTimeout
}

// Metrics tracks failover statistics for observability.
type Metrics struct {
	mu               sync.Mutex
	TotalRequests    int64
	TotalFailovers   int64
	TotalRetries     int64
	CircuitBreaks    int64
	ProviderFailures map[string]int64
}

// FailoverOrchestrator wraps a primary llm.Provider with ordered
// fallback providers, per-provider circuit breakers, and exponential
// backoff retries, grounded on the teacher's FailoverOrchestrator.
type FailoverOrchestrator struct {
	mu        sync.RWMutex
	providers []llm.Provider
	config    *FailoverConfig
	states    map[string]*providerState
	metrics   *Metrics
}

// NewFailoverOrchestrator constructs an orchestrator around a primary
// provider. Additional providers are tried, in order, after the
// primary fails with a failover-eligible error.
func NewFailoverOrchestrator(primary llm.Provider, config *FailoverConfig) *FailoverOrchestrator {
	if config == nil {
		config = DefaultFailoverConfig()
	}
	return &FailoverOrchestrator{
		providers: []llm.Provider{primary},
		config:    config,
		states:    make(map[string]*providerState),
		metrics:   &Metrics{ProviderFailures: make(map[string]int64)},
	}
}

// AddProvider appends a fallback provider, tried after all providers
// before it are exhausted or circuit-broken.
func (o *FailoverOrchestrator) AddProvider(p llm.Provider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.providers = append(o.providers, p)
}

// Metrics returns a point-in-time copy of the orchestrator's counters.
func (o *FailoverOrchestrator) Metrics() Metrics {
	o.metrics.mu.Lock()
	defer o.metrics.mu.Unlock()
	failures := make(map[string]int64, len(o.metrics.ProviderFailures))
	for k, v := range o.metrics.ProviderFailures {
		failures[k] = v
	}
	return Metrics{
		TotalRequests:    o.metrics.TotalRequests,
		TotalFailovers:   o.metrics.TotalFailovers,
		TotalRetries:     o.metrics.TotalRetries,
		CircuitBreaks:    o.metrics.CircuitBreaks,
		ProviderFailures: failures,
	}
}

// Name identifies this orchestrator as an llm.Provider in its own
// right, so it can be nested or substituted wherever a Provider is
// expected.
func (o *FailoverOrchestrator) Name() string { return "failover" }

// Complete implements llm.Provider with failover across the configured
// provider chain.
func (o *FailoverOrchestrator) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.Chunk, error) {
	o.metrics.mu.Lock()
	o.metrics.TotalRequests++
	o.metrics.mu.Unlock()

	o.mu.RLock()
	chain := make([]llm.Provider, len(o.providers))
	copy(chain, o.providers)
	o.mu.RUnlock()

	var lastErr error
	for i, provider := range chain {
		state := o.stateFor(provider.Name())
		if !state.isAvailable(o.config) {
			continue
		}

		ch, err := o.tryProvider(ctx, provider, req)
		if err == nil {
			o.recordSuccess(provider.Name())
			return ch, nil
		}

		lastErr = err
		o.recordFailure(provider.Name(), err)

		if !o.shouldFailover(err) {
			return nil, err
		}
		if i < len(chain)-1 {
			o.metrics.mu.Lock()
			o.metrics.TotalFailovers++
			o.metrics.mu.Unlock()
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("providers: no available providers")
	}
	return nil, lastErr
}

func (o *FailoverOrchestrator) tryProvider(ctx context.Context, provider llm.Provider, req *llm.CompletionRequest) (<-chan *llm.Chunk, error) {
	var lastErr error
	backoff := o.config.RetryBackoff

	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		ch, err := provider.Complete(ctx, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= o.config.MaxRetries {
			break
		}

		o.metrics.mu.Lock()
		o.metrics.TotalRetries++
		o.metrics.mu.Unlock()

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > o.config.MaxRetryBackoff {
				backoff = o.config.MaxRetryBackoff
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (o *FailoverOrchestrator) shouldFailover(err error) bool {
	reason := ClassifyProviderError(err)
	switch reason {
	case "billing", "auth", "model_unavailable":
		return true
	case "rate_limit":
		return o.config.FailoverOnRateLimit
	case "server_error":
		return o.config.FailoverOnServerError
	default:
		return false
	}
}

func isRetryable(err error) bool {
	switch ClassifyProviderError(err) {
	case "rate_limit", "timeout", "server_error":
		return true
	default:
		return false
	}
}

// ClassifyProviderError buckets a provider error by substring
// matching, the way the teacher's classifyProviderError does for its
// own failover decisions.
func ClassifyProviderError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := strings.ToLower(err.Error())

	switch {
	case containsAny(errStr, "timeout", "deadline exceeded", "context deadline"):
		return "timeout"
	case containsAny(errStr, "rate limit", "rate_limit", "too many requests", "429"):
		return "rate_limit"
	case containsAny(errStr, "unauthorized", "invalid api key", "authentication", "401", "403"):
		return "auth"
	case containsAny(errStr, "billing", "payment", "quota", "402"):
		return "billing"
	case containsAny(errStr, "internal server", "server error", "500", "502", "503", "504"):
		return "server_error"
	case containsAny(errStr, "model not found", "does not exist", "unavailable"):
		return "model_unavailable"
	case containsAny(errStr, "invalid", "bad request", "400"):
		return "invalid_request"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (o *FailoverOrchestrator) stateFor(name string) *providerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[name]; ok {
		return s
	}
	s := &providerState{}
	o.states[name] = s
	return s
}

func (o *FailoverOrchestrator) recordSuccess(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[name]; ok {
		s.failures = 0
		s.circuitOpen = false
	}
}

func (o *FailoverOrchestrator) recordFailure(name string, err error) {
	o.mu.Lock()
	s := o.states[name]
	s.failures++
	breakCircuit := s.failures >= o.config.CircuitBreakerThreshold
	if breakCircuit {
		s.circuitOpen = true
		s.circuitOpenAt = time.Now()
	}
	o.mu.Unlock()

	o.metrics.mu.Lock()
	o.metrics.ProviderFailures[name]++
	if breakCircuit {
		o.metrics.CircuitBreaks++
	}
	o.metrics.mu.Unlock()
	_ = err
}
