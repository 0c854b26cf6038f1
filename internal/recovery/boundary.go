// Package recovery supervises the booking flow. A Boundary captures faults
// raised inside it and offers two ways back: retry with persisted state
// intact, or reset after purging every booking-related key.
package recovery

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/metrics"
	"inkbook/internal/common/observability"
)

type State int

const (
	Healthy State = iota
	Faulted
	Recovering
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Faulted:
		return "faulted"
	case Recovering:
		return "recovering"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Fault is the captured failure and its diagnostic context.
type Fault struct {
	Err   error                  `json:"-"`
	Info  map[string]interface{} `json:"info,omitempty"`
	Stack string                 `json:"-"`
	At    time.Time              `json:"at"`
}

// Purger removes every persisted key under a prefix.
type Purger interface {
	DeleteAllMatching(prefix string)
}

type Config struct {
	// Delay is how long Recovering lasts before the boundary is Healthy again.
	Delay time.Duration
	// PurgePrefixes are wiped from every Purger on Reset.
	PurgePrefixes []string
}

type Option func(*Boundary)

// WithOnFault registers the external fault handler.
func WithOnFault(fn func(Fault)) Option {
	return func(b *Boundary) { b.onFault = fn }
}

// WithOnTransition registers the announcer for state changes.
func WithOnTransition(fn func(from, to State, message string)) Option {
	return func(b *Boundary) { b.onTransition = fn }
}

func WithPurgers(p ...Purger) Option {
	return func(b *Boundary) { b.purgers = append(b.purgers, p...) }
}

func WithObservability(o *observability.Observability) Option {
	return func(b *Boundary) { b.obs = o }
}

type Boundary struct {
	cfg          Config
	log          logger.Logger
	onFault      func(Fault)
	onTransition func(from, to State, message string)
	purgers      []Purger
	obs          *observability.Observability

	mu        sync.Mutex
	state     State
	fault     *Fault
	recovered chan struct{}

	wg sync.WaitGroup
}

func New(cfg Config, log logger.Logger, opts ...Option) *Boundary {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	b := &Boundary{
		cfg: cfg,
		log: logger.ForComponent(log, "recovery"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Boundary) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Fault returns a copy of the captured fault, or nil while Healthy.
func (b *Boundary) Fault() *Fault {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault == nil {
		return nil
	}
	f := *b.fault
	return &f
}

// ReportFault moves a Healthy boundary to Faulted. It returns false, and
// drops the fault, when the boundary is already Faulted or Recovering.
func (b *Boundary) ReportFault(err error, info map[string]interface{}) bool {
	if err == nil {
		return false
	}

	b.mu.Lock()
	if b.state != Healthy {
		state := b.state
		b.mu.Unlock()
		b.log.Debug("fault dropped", map[string]interface{}{"state": state.String(), "error": err.Error()})
		return false
	}
	fault := Fault{Err: err, Info: info, At: time.Now().UTC()}
	if stack, ok := info["stack"].(string); ok {
		fault.Stack = stack
	}
	b.fault = &fault
	b.state = Faulted
	b.mu.Unlock()

	stdErr := apperrors.Normalize(err)
	b.log.Error("booking flow faulted", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"error":     err.Error(),
		"info":      info,
	})
	b.obs.RecordFault(context.Background(), string(stdErr.Code))
	b.announce(Healthy, Faulted, "Something went wrong with the booking form.")

	if b.onFault != nil {
		b.onFault(fault)
	}
	return true
}

// Guard runs fn and converts a panic into a fault. It reports whether fn
// faulted.
func (b *Boundary) Guard(fn func()) (faulted bool) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			b.ReportFault(apperrors.NewRenderFaultError(err), map[string]interface{}{
				"stack": string(debug.Stack()),
			})
			faulted = true
		}
	}()
	fn()
	return false
}

// Retry clears the fault after the recovery delay, keeping persisted state.
// The returned channel closes once the boundary is Healthy.
func (b *Boundary) Retry() <-chan struct{} {
	return b.recover(false)
}

// Reset purges booking data first, then recovers like Retry.
func (b *Boundary) Reset() <-chan struct{} {
	return b.recover(true)
}

func (b *Boundary) recover(purge bool) <-chan struct{} {
	b.mu.Lock()
	switch b.state {
	case Recovering:
		ch := b.recovered
		b.mu.Unlock()
		return ch
	case Healthy:
		b.mu.Unlock()
		return closedChan()
	}
	b.state = Recovering
	done := make(chan struct{})
	b.recovered = done
	b.wg.Add(1)
	b.mu.Unlock()

	mode := "retry"
	message := "Retrying the booking form."
	if purge {
		mode = "reset"
		message = "Clearing saved booking data."
	}
	b.log.Info("recovering booking flow", map[string]interface{}{"mode": mode})
	b.announce(Faulted, Recovering, message)

	go func() {
		defer b.wg.Done()
		if purge {
			b.purge()
		}

		timer := time.NewTimer(b.cfg.Delay)
		<-timer.C

		b.mu.Lock()
		b.state = Healthy
		b.fault = nil
		b.recovered = nil
		b.mu.Unlock()

		b.announce(Recovering, Healthy, "The booking form is ready.")
		close(done)
	}()
	return done
}

func (b *Boundary) purge() {
	for _, p := range b.purgers {
		for _, prefix := range b.cfg.PurgePrefixes {
			b.purgeOne(p, prefix)
		}
	}
}

func (b *Boundary) purgeOne(p Purger, prefix string) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("purge failed during reset", map[string]interface{}{
				"prefix": prefix,
				"panic":  fmt.Sprintf("%v", r),
			})
		}
	}()
	p.DeleteAllMatching(prefix)
}

func (b *Boundary) announce(from, to State, message string) {
	metrics.BoundaryTransitions.WithLabelValues(from.String(), to.String()).Inc()
	if b.onTransition != nil {
		b.onTransition(from, to, message)
	}
}

// Wait blocks until every recovery in progress has finished.
func (b *Boundary) Wait() {
	b.wg.Wait()
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
