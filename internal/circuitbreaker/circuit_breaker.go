package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Execute while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name        string
	MaxFailures int           // consecutive failures before opening
	Timeout     time.Duration // how long to stay open before probing
	MaxRequests int           // concurrent probes allowed while half-open
}

// CircuitBreaker fails fast once a downstream dependency has failed
// MaxFailures times in a row. After Timeout it lets MaxRequests probe calls
// through; one success closes it, one failure reopens it.
type CircuitBreaker struct {
	name        string
	maxFailures int
	timeout     time.Duration
	maxRequests int

	mutex        sync.Mutex
	state        State
	failures     int
	requests     int
	lastFailTime time.Time

	logger *logrus.Logger
}

func New(config Config, logger *logrus.Logger) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 1
	}
	if config.Name == "" {
		config.Name = "unnamed"
	}

	return &CircuitBreaker{
		name:        config.Name,
		maxFailures: config.MaxFailures,
		timeout:     config.Timeout,
		maxRequests: config.MaxRequests,
		state:       StateClosed,
		logger:      logger,
	}
}

// Execute runs fn under the breaker. It returns ErrOpen without calling fn
// when the breaker is rejecting, otherwise it returns fn's error.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn()
	cb.afterCall(err)
	return err
}

// State returns the current state, accounting for open-to-half-open expiry.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailTime) >= cb.timeout {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailTime) < cb.timeout {
			return ErrOpen
		}
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.requests >= cb.maxRequests {
			return ErrOpen
		}
		cb.requests++
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateHalfOpen {
		cb.requests--
	}

	if err != nil {
		cb.failures++
		cb.lastFailTime = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.transition(StateOpen)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
}

// transition must be called with the mutex held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.requests = 0
	if to == StateClosed {
		cb.failures = 0
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"from":            from.String(),
		"to":              to.String(),
	}).Info("Circuit breaker state change")
}
