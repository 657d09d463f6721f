package circuit

import (
	"context"
	stderr "errors"
	"sync"
	"time"

	"github.com/objectfs/rangecache/pkg/errors"
)

// State represents the breaker state
type State int

const (
	// StateClosed passes every call through
	StateClosed State = iota
	// StateOpen rejects calls until the open timeout elapses
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through
	StateHalfOpen
)

// String returns string representation of state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config contains breaker configuration
type Config struct {
	// Consecutive failures that open the breaker
	FailureThreshold uint32 `yaml:"failure_threshold"`

	// Time spent open before probing
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// Probe calls allowed while half-open
	HalfOpenRequests uint32 `yaml:"half_open_requests"`

	// IsFailure decides whether an error counts against the store
	IsFailure func(err error) bool `yaml:"-"`

	// OnStateChange is called with the breaker lock held
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// Counts is a snapshot of breaker activity
type Counts struct {
	Requests            uint64 `json:"requests"`
	Failures            uint64 `json:"failures"`
	Rejected            uint64 `json:"rejected"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// Breaker stops calls to a remote store after repeated failures.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu       sync.Mutex
	state    State
	expiry   time.Time
	inFlight uint32
	counts   Counts
}

// New creates a breaker named after the store it guards.
func New(name string, config Config) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = IsStoreFailure
	}
	return &Breaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// IsStoreFailure counts everything except missing objects, caller errors
// and cancellation.
func IsStoreFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderr.Is(err, context.Canceled) {
		return false
	}
	switch {
	case errors.IsNotFound(err),
		errors.HasCode(err, errors.ErrCodeInvalidArgument),
		errors.HasCode(err, errors.ErrCodePathInvalid),
		errors.HasCode(err, errors.ErrCodeOperationCanceled):
		return false
	}
	return true
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	b.afterRequest(err)
	return err
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if state == StateOpen ||
		(state == StateHalfOpen && b.inFlight >= b.config.HalfOpenRequests) {
		b.counts.Rejected++
		return errors.NewError(errors.ErrCodeCircuitOpen, "remote store unavailable").
			WithComponent("circuit").
			WithContext("store", b.name).
			WithContext("state", state.String())
	}

	b.counts.Requests++
	if state == StateHalfOpen {
		b.inFlight++
	}
	return nil
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if state == StateHalfOpen && b.inFlight > 0 {
		b.inFlight--
	}

	if !b.config.IsFailure(err) {
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen {
			b.setState(StateClosed)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	switch state {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.config.FailureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

func (b *Breaker) currentState() State {
	if b.state == StateOpen && !b.now().Before(b.expiry) {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.inFlight = 0

	switch state {
	case StateOpen:
		b.expiry = b.now().Add(b.config.OpenTimeout)
	case StateClosed:
		b.counts.ConsecutiveFailures = 0
		b.expiry = time.Time{}
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, state)
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Counts returns a copy of the current counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Reset closes the breaker and clears its counts
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
	b.counts = Counts{}
}

// Name returns the guarded store name
func (b *Breaker) Name() string {
	return b.name
}
