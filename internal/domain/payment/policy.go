package payment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidProbability = errors.New("payment: probability must be between 0 and 1")

// Check describes the payment submitted to the external screens.
type Check struct {
	Amount decimal.Decimal
	Method Method
	Card   CardDetails
}

// Policy stands in for the external fraud screen, authorizer and refund
// processor. Implementations may block on a remote call.
type Policy interface {
	FraudClear(ctx context.Context, check Check) bool
	Authorize(ctx context.Context, check Check) bool
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) bool
}

type PolicyConfig struct {
	FraudClearProbability    float64
	AuthorizationProbability float64
	RefundProbability        float64
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		FraudClearProbability:    0.95,
		AuthorizationProbability: 0.90,
		RefundProbability:        0.95,
	}
}

func (c PolicyConfig) Validate() error {
	for _, p := range []float64{c.FraudClearProbability, c.AuthorizationProbability, c.RefundProbability} {
		if p < 0 || p > 1 {
			return ErrInvalidProbability
		}
	}
	return nil
}

// RandomPolicy draws every decision independently.
type RandomPolicy struct {
	mu     sync.Mutex
	random *rand.Rand
	cfg    PolicyConfig
}

func NewRandomPolicy(cfg PolicyConfig) (*RandomPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RandomPolicy{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
		cfg:    cfg,
	}, nil
}

func (p *RandomPolicy) FraudClear(ctx context.Context, _ Check) bool {
	return p.draw(ctx, p.cfg.FraudClearProbability)
}

func (p *RandomPolicy) Authorize(ctx context.Context, _ Check) bool {
	return p.draw(ctx, p.cfg.AuthorizationProbability)
}

func (p *RandomPolicy) Refund(ctx context.Context, _ string, _ decimal.Decimal) bool {
	return p.draw(ctx, p.cfg.RefundProbability)
}

func (p *RandomPolicy) draw(ctx context.Context, probability float64) bool {
	// respect cancellation even though this is simulated
	select {
	case <-ctx.Done():
		return false
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.random.Float64() < probability
}

// FixedPolicy returns preset decisions and counts calls.
type FixedPolicy struct {
	mu sync.Mutex

	FraudClearResult bool
	AuthorizeResult  bool
	RefundResult     bool

	FraudCalls     int
	AuthorizeCalls int
	RefundCalls    int
}

// ApprovingPolicy clears fraud, authorizes and refunds everything.
func ApprovingPolicy() *FixedPolicy {
	return &FixedPolicy{FraudClearResult: true, AuthorizeResult: true, RefundResult: true}
}

func (p *FixedPolicy) FraudClear(context.Context, Check) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FraudCalls++
	return p.FraudClearResult
}

func (p *FixedPolicy) Authorize(context.Context, Check) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AuthorizeCalls++
	return p.AuthorizeResult
}

func (p *FixedPolicy) Refund(context.Context, string, decimal.Decimal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RefundCalls++
	return p.RefundResult
}

// Set replaces the preset decisions.
func (p *FixedPolicy) Set(fraudClear, authorize, refund bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FraudClearResult = fraudClear
	p.AuthorizeResult = authorize
	p.RefundResult = refund
}

// Calls returns the number of fraud, authorization and refund calls so far.
func (p *FixedPolicy) Calls() (fraud, authorize, refund int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.FraudCalls, p.AuthorizeCalls, p.RefundCalls
}
