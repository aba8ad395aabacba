package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scenario enumerates supported behaviours for the mock provider.
type Scenario string

const (
	ScenarioSuccess Scenario = "success"
	ScenarioError   Scenario = "error"
	ScenarioTimeout Scenario = "timeout"
)

// MockOption customises the mock provider at construction time.
type MockOption func(*MockProvider)

// WithScenario overrides the default scenario.
func WithScenario(s Scenario) MockOption {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithLatency sets the artificial latency inserted before responding.
func WithLatency(d time.Duration) MockOption {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithFailingNumbers forces the error scenario for specific recipients while
// the rest follow the default scenario.
func WithFailingNumbers(numbers ...string) MockOption {
	return func(p *MockProvider) {
		for _, n := range numbers {
			p.failing[n] = true
		}
	}
}

// MockProvider implements a deterministic Provider suitable for tests.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	latency         time.Duration
	failing         map[string]bool

	mu      sync.Mutex
	seq     int
	sent    []TemplatePayload
	checked int
}

// NewMockProvider constructs a new mock provider.
func NewMockProvider(logger zerolog.Logger, opts ...MockOption) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		failing:         map[string]bool{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// SendTemplate simulates a template send.
func (p *MockProvider) SendTemplate(ctx context.Context, payload *TemplatePayload) (*SendResult, error) {
	if payload == nil {
		return nil, errors.New("whatsapp mock: payload is required")
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	scenario := p.defaultScenario
	if p.failing[payload.To] {
		scenario = ScenarioError
	}

	switch scenario {
	case ScenarioError:
		return nil, &ProviderError{
			HTTPStatus: 400,
			Code:       131026,
			Type:       "OAuthException",
			Message:    fmt.Sprintf("message undeliverable to %s", payload.To),
		}
	case ScenarioTimeout:
		return nil, context.DeadlineExceeded
	}

	p.mu.Lock()
	p.seq++
	id := fmt.Sprintf("wamid.MOCK%06d", p.seq)
	p.sent = append(p.sent, *payload)
	p.mu.Unlock()

	return &SendResult{MessageID: id, HTTPStatus: 200, Timestamp: time.Now()}, nil
}

// CheckConnection simulates the preflight probe.
func (p *MockProvider) CheckConnection(ctx context.Context) error {
	p.mu.Lock()
	p.checked++
	p.mu.Unlock()
	if p.defaultScenario == ScenarioError {
		return &ProviderError{HTTPStatus: 401, Message: "invalid token"}
	}
	return nil
}

// Sent returns a copy of every payload accepted so far.
func (p *MockProvider) Sent() []TemplatePayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TemplatePayload(nil), p.sent...)
}

// Checks reports how many connection checks ran.
func (p *MockProvider) Checks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checked
}
