// Package booking drives a single multi-step booking flow: field edits,
// per-step validation, debounced persistence and submission.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/metrics"
	"inkbook/internal/models"
	"inkbook/internal/suggestions"
)

// SubmitFailedMessage is shown under the reserved "submit" error key.
const SubmitFailedMessage = "Failed to submit booking. Please try again."

// ErrInvalidFlowID is returned for flow ids that could overlap another
// flow's key namespace.
var ErrInvalidFlowID = errors.New("invalid flow id")

var flowIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidFlowID accepts 1 to 64 letters, digits, '-' or '_'. Generated uuids
// always pass.
func ValidFlowID(id string) bool {
	return flowIDPattern.MatchString(id)
}

// Store is the persistence surface the controller needs.
type Store interface {
	Get(ns string, dst any) bool
	Set(ns string, v any)
	Delete(ns string)
	DeleteAllMatching(prefix string)
}

type Submitter interface {
	Submit(ctx context.Context, draft models.BookingDraft) (*models.SubmissionReceipt, error)
}

type Prefetcher interface {
	PrefetchRelated(ctx context.Context, prev, next models.BookingDraft) suggestions.PrefetchReport
}

type CacheInvalidator interface {
	DeletePrefix(prefix string) int
}

type Config struct {
	AutosaveDelay  time.Duration
	SubmitTimeout  time.Duration
	MaxReferences  int
	MinDescription int
}

type Deps struct {
	Store      Store
	Submitter  Submitter
	Prefetcher Prefetcher       // optional
	Cache      CacheInvalidator // optional
	Logger     logger.Logger
}

type Options struct {
	// FlowID scopes persisted keys. A random id is generated when empty.
	FlowID string
	// NewBooking discards anything persisted for FlowID before starting.
	NewBooking bool
}

// State is a point-in-time copy of the controller.
type State struct {
	FlowID    string                  `json:"flowId"`
	Draft     models.BookingDraft     `json:"draft"`
	Step      models.Step             `json:"step"`
	StepName  string                  `json:"stepName"`
	Errors    models.ValidationErrors `json:"errors"`
	Dirty     bool                    `json:"dirty"`
	Loading   bool                    `json:"loading"`
	LastSaved *time.Time              `json:"lastSaved,omitempty"`
	Progress  int                     `json:"progress"`
}

type SubmitResult struct {
	Success   bool                    `json:"success"`
	BookingID string                  `json:"bookingId,omitempty"`
	Errors    models.ValidationErrors `json:"errors,omitempty"`
	Err       error                   `json:"-"`
}

type meta struct {
	LastSaved time.Time `json:"lastSaved"`
}

type Controller struct {
	flowID string
	cfg    Config
	rules  rules
	deps   Deps
	log    logger.Logger
	errs   *apperrors.ErrorHandler

	debounce *Debouncer

	// persistMu orders draft writes against resets so a write that raced a
	// reset never lands after it.
	persistMu sync.Mutex

	mu        sync.Mutex
	draft     models.BookingDraft
	step      models.Step
	errors    models.ValidationErrors
	dirty     bool
	loading   bool
	lastSaved *time.Time
	rev       uint64
	epoch     uint64
	closed    bool

	ctx      context.Context
	cancel   context.CancelFunc
	prefetch sync.WaitGroup
}

func NewController(cfg Config, deps Deps, opts Options) (*Controller, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("booking controller requires a store")
	}
	if deps.Submitter == nil {
		return nil, fmt.Errorf("booking controller requires a submitter")
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 15 * time.Second
	}
	if cfg.MinDescription <= 0 {
		cfg.MinDescription = 10
	}
	if cfg.MaxReferences <= 0 {
		cfg.MaxReferences = 10
	}

	flowID := opts.FlowID
	if flowID == "" {
		flowID = uuid.New().String()
	}
	if !ValidFlowID(flowID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFlowID, flowID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	log := logger.ForComponent(deps.Logger, "booking").WithFields(map[string]interface{}{"flowId": flowID})
	c := &Controller{
		flowID:   flowID,
		cfg:      cfg,
		rules:    rules{maxReferences: cfg.MaxReferences, minDescription: cfg.MinDescription},
		deps:     deps,
		log:      log,
		errs:     apperrors.NewErrorHandler(log),
		debounce: NewDebouncer(cfg.AutosaveDelay),
		draft:    models.NewBookingDraft(),
		step:     models.FirstStep,
		errors:   make(models.ValidationErrors),
		ctx:      ctx,
		cancel:   cancel,
	}

	if opts.NewBooking {
		deps.Store.DeleteAllMatching(c.prefix())
		log.Info("started new booking", nil)
	} else {
		c.load()
	}
	return c, nil
}

func (c *Controller) FlowID() string { return c.flowID }

func (c *Controller) prefix() string { return "booking:" + c.flowID + ":" }
func (c *Controller) draftNS() string { return c.prefix() + "draft" }
func (c *Controller) stepNS() string { return c.prefix() + "step" }
func (c *Controller) metaNS() string { return c.prefix() + "meta" }

func (c *Controller) load() {
	var draft models.BookingDraft
	if c.deps.Store.Get(c.draftNS(), &draft) {
		if draft.References == nil {
			draft.References = []string{}
		}
		c.draft = draft
	}

	var step int
	if c.deps.Store.Get(c.stepNS(), &step) && models.Step(step).Valid() {
		c.step = models.Step(step)
	}

	var m meta
	if c.deps.Store.Get(c.metaNS(), &m) && !m.LastSaved.IsZero() {
		saved := m.LastSaved
		c.lastSaved = &saved
	}

	c.log.Debug("restored booking", map[string]interface{}{"step": c.step.String()})
}

// UpdateField merges value into the draft, re-validates that field only and
// schedules a debounced save.
func (c *Controller) UpdateField(field models.Field, value any) error {
	c.mu.Lock()
	prev := c.draft.Clone()
	next := c.draft.Clone()
	if err := setField(&next, field, value); err != nil {
		c.mu.Unlock()
		return err
	}
	c.draft = next
	delete(c.errors, string(field))
	if msg := c.rules.checkFormat(next, field); msg != "" {
		c.errors[string(field)] = msg
	}
	c.dirty = true
	c.rev++
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil
	}
	c.debounce.Schedule(c.persistDraft)

	switch field {
	case models.FieldArtistID, models.FieldStudioID, models.FieldAppointmentDate:
		c.startPrefetch(prev, next)
	}
	return nil
}

func (c *Controller) startPrefetch(prev, next models.BookingDraft) {
	if c.deps.Prefetcher == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.prefetch.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.prefetch.Done()
		report := c.deps.Prefetcher.PrefetchRelated(c.ctx, prev, next)
		if len(report.Failed) > 0 {
			c.log.Debug("prefetch incomplete", map[string]interface{}{
				"attempted": report.Attempted,
				"failed":    report.Failed,
			})
		}
	}()
}

func (c *Controller) persistDraft() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	draft := c.draft.Clone()
	rev := c.rev
	epoch := c.epoch
	c.mu.Unlock()

	now := time.Now().UTC()
	c.deps.Store.Set(c.draftNS(), draft)
	c.deps.Store.Set(c.metaNS(), meta{LastSaved: now})

	c.mu.Lock()
	if c.epoch == epoch {
		c.lastSaved = &now
		if c.rev == rev {
			c.dirty = false
		}
	}
	c.mu.Unlock()
}

// GoToNextStep validates the current step and advances when it passes. The
// step never moves past the review step.
func (c *Controller) GoToNextStep() bool {
	c.mu.Lock()
	current := c.step
	stepErrs := c.rules.validateStep(c.draft, current)
	for _, f := range stepFields[current] {
		delete(c.errors, string(f))
	}
	for f, msg := range stepErrs {
		c.errors[f] = msg
	}
	if len(stepErrs) > 0 {
		c.mu.Unlock()
		metrics.StepTransitions.WithLabelValues("next", "blocked").Inc()
		return false
	}

	if current == models.LastStep {
		c.mu.Unlock()
		metrics.StepTransitions.WithLabelValues("next", "capped").Inc()
		return true
	}
	c.step = current + 1
	step := c.step
	c.mu.Unlock()

	c.persistStep(step)
	metrics.StepTransitions.WithLabelValues("next", "advanced").Inc()
	return true
}

// GoToPreviousStep steps back without validating. It reports whether the
// step changed.
func (c *Controller) GoToPreviousStep() bool {
	c.mu.Lock()
	if c.step <= models.FirstStep {
		c.mu.Unlock()
		metrics.StepTransitions.WithLabelValues("previous", "noop").Inc()
		return false
	}
	c.step--
	step := c.step
	c.mu.Unlock()

	c.persistStep(step)
	metrics.StepTransitions.WithLabelValues("previous", "advanced").Inc()
	return true
}

// persistStep writes the pending draft first, so a persisted step never
// points past the draft that justified it.
func (c *Controller) persistStep(step models.Step) {
	c.debounce.Flush()

	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	c.deps.Store.Set(c.stepNS(), int(step))
}

// ValidateForm replaces the error map with a full validation pass.
func (c *Controller) ValidateForm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateFormLocked()
}

func (c *Controller) validateFormLocked() bool {
	c.errors = c.rules.validateAll(c.draft)
	return len(c.errors) == 0
}

// SubmitForm validates and hands the draft to the submitter. The call is
// detached from ctx cancellation and bounded by the submit timeout.
func (c *Controller) SubmitForm(ctx context.Context) SubmitResult {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		metrics.SubmissionsTotal.WithLabelValues("in_progress").Inc()
		return SubmitResult{Err: apperrors.NewSubmissionInProgressError(c.flowID)}
	}
	if !c.validateFormLocked() {
		errs := c.errors.Clone()
		c.mu.Unlock()
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return SubmitResult{Errors: errs, Err: apperrors.NewValidationFailedError(errs)}
	}
	c.loading = true
	draft := c.draft.Clone()
	c.mu.Unlock()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.SubmitTimeout)
	defer cancel()

	receipt, err := c.deps.Submitter.Submit(sctx, draft)
	if err == nil && (receipt == nil || receipt.BookingID == "") {
		err = apperrors.NewSubmissionFailedError(0, fmt.Errorf("submitter returned no booking id"))
	}
	if err != nil {
		stdErr := c.errs.Report("submit", err, map[string]interface{}{"artistId": draft.ArtistID})
		c.mu.Lock()
		c.loading = false
		c.errors[models.SubmitErrorKey] = SubmitFailedMessage
		errs := c.errors.Clone()
		c.mu.Unlock()
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return SubmitResult{Errors: errs, Err: stdErr}
	}

	if c.deps.Cache != nil && draft.ArtistID != "" {
		n := c.deps.Cache.DeletePrefix(suggestions.ArtistPrefix(draft.ArtistID))
		c.log.Debug("invalidated artist cache", map[string]interface{}{"artistId": draft.ArtistID, "entries": n})
	}
	c.reset()

	metrics.SubmissionsTotal.WithLabelValues("success").Inc()
	c.log.Info("booking submitted", map[string]interface{}{"bookingId": receipt.BookingID})
	return SubmitResult{Success: true, BookingID: receipt.BookingID}
}

// ClearForm discards the draft, the persisted keys and any pending save.
func (c *Controller) ClearForm() {
	c.reset()
	c.log.Info("booking cleared", nil)
}

func (c *Controller) reset() {
	c.debounce.Cancel()

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.draft = models.NewBookingDraft()
	c.step = models.FirstStep
	c.errors = make(models.ValidationErrors)
	c.dirty = false
	c.loading = false
	c.lastSaved = nil
	c.rev++
	c.epoch++
	c.mu.Unlock()

	c.deps.Store.Delete(c.draftNS())
	c.deps.Store.Delete(c.stepNS())
	c.deps.Store.Delete(c.metaNS())
}

// Progress is the share of required fields filled, as a rounded percentage.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progress(c.draft)
}

func progress(d models.BookingDraft) int {
	present := 0
	for _, f := range models.RequiredFields {
		if d.Has(f) {
			present++
		}
	}
	return int(math.Round(float64(present) / float64(len(models.RequiredFields)) * 100))
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		FlowID:   c.flowID,
		Draft:    c.draft.Clone(),
		Step:     c.step,
		StepName: c.step.String(),
		Errors:   c.errors.Clone(),
		Dirty:    c.dirty,
		Loading:  c.loading,
		Progress: progress(c.draft),
	}
	if c.lastSaved != nil {
		saved := *c.lastSaved
		s.LastSaved = &saved
	}
	return s
}

// Flush writes a pending debounced save immediately.
func (c *Controller) Flush() {
	c.debounce.Flush()
}

// Close drops any pending save and waits for in-flight prefetches.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.debounce.Cancel()
	c.debounce.Wait()
	c.cancel()
	c.prefetch.Wait()
}
