// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience protects callers of a remote knowledge base from an
// endpoint that keeps failing.
package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/jllopis/actionkb/pkg/errors"
)

// State is the state of a Breaker.
type State string

const (
	// StateClosed lets every call through.
	StateClosed State = "closed"
	// StateOpen rejects calls until the cooldown has passed.
	StateOpen State = "open"
	// StateHalfOpen lets calls through to probe whether the endpoint recovered.
	StateHalfOpen State = "half-open"
)

// BreakerConfig configures a Breaker. Zero values take defaults.
type BreakerConfig struct {
	// Name identifies the breaker in errors.
	Name string
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that close it again.
	SuccessThreshold int
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration
}

// Breaker is a circuit breaker. It is safe for concurrent use and holds no
// lock while the protected call runs.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "breaker"
	}
	return &Breaker{cfg: cfg, now: time.Now, state: StateClosed}
}

// Allow returns a recoverable CodeUnavailable error while the breaker is open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	if b.state != StateOpen {
		return nil
	}
	return errors.New(errors.CodeUnavailable, "circuit breaker open", nil).
		WithContext("breaker", b.cfg.Name).
		WithContext("retry_after", b.openedAt.Add(b.cfg.Cooldown).Sub(b.now()).String()).
		WithRecoverable(true)
}

// Record feeds the outcome of a call into the breaker. Cancellation by the
// caller says nothing about the endpoint and is ignored.
func (b *Breaker) Record(err error) {
	if err != nil && stderrors.Is(err, context.Canceled) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()

	if err == nil {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.state = StateClosed
				b.successes = 0
			}
		}
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.openLocked()
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openLocked()
		}
	}
}

// Call runs fn when the breaker allows it and records the result.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.Record(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	return b.state
}

// Reset closes the breaker and forgets past failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

func (b *Breaker) openLocked() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
}

// advanceLocked moves an open breaker to half-open once the cooldown passed.
func (b *Breaker) advanceLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = StateHalfOpen
		b.successes = 0
	}
}
