// internal/server/registry.go
package server

import (
	"strings"
	"sync"
	"time"

	"inkbook/internal/booking"
	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/metrics"
)

// ControllerFactory builds a controller for a flow.
type ControllerFactory func(opts booking.Options) (*booking.Controller, error)

// SessionStore records which flows exist so they survive a restart.
type SessionStore interface {
	Get(ns string, dst any) bool
	Set(ns string, v any)
	Delete(ns string)
}

type session struct {
	FlowID    string    `json:"flowId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FlowRegistry holds the live booking controllers, keyed by flow id.
type FlowRegistry struct {
	factory       ControllerFactory
	store         SessionStore
	sessionPrefix string
	log           logger.Logger

	mu    sync.Mutex
	flows map[string]*booking.Controller
}

func NewFlowRegistry(factory ControllerFactory, store SessionStore, sessionPrefix string, log logger.Logger) *FlowRegistry {
	return &FlowRegistry{
		factory:       factory,
		store:         store,
		sessionPrefix: sessionPrefix,
		log:           logger.ForComponent(log, "flows"),
		flows:         make(map[string]*booking.Controller),
	}
}

func (r *FlowRegistry) sessionKey(flowID string) string {
	return r.sessionPrefix + flowID
}

// Open returns the controller for flowID, creating it when needed. With
// newBooking set, an already-open flow is cleared rather than rebuilt.
func (r *FlowRegistry) Open(flowID string, newBooking bool) (*booking.Controller, error) {
	if flowID != "" && !booking.ValidFlowID(flowID) {
		return nil, apperrors.NewValidationFailedError(map[string]string{
			"flowId": "Flow id may only contain letters, digits, '-' and '_' (at most 64)",
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.flows[flowID]; ok && flowID != "" {
		if newBooking {
			c.ClearForm()
		}
		return c, nil
	}

	c, err := r.factory(booking.Options{FlowID: flowID, NewBooking: newBooking})
	if err != nil {
		return nil, err
	}
	r.flows[c.FlowID()] = c
	r.store.Set(r.sessionKey(c.FlowID()), session{FlowID: c.FlowID(), CreatedAt: time.Now().UTC()})
	metrics.ActiveFlows.Set(float64(len(r.flows)))

	r.log.Info("flow opened", map[string]interface{}{"flowId": c.FlowID(), "newBooking": newBooking})
	return c, nil
}

// Get returns a live controller, restoring it from persisted state when the
// flow has a session but is not loaded.
func (r *FlowRegistry) Get(flowID string) (*booking.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.flows[flowID]; ok {
		return c, nil
	}

	var s session
	if !booking.ValidFlowID(flowID) || !r.store.Get(r.sessionKey(flowID), &s) {
		return nil, apperrors.NewFlowNotFoundError(flowID)
	}

	c, err := r.factory(booking.Options{FlowID: flowID})
	if err != nil {
		return nil, err
	}
	r.flows[flowID] = c
	metrics.ActiveFlows.Set(float64(len(r.flows)))

	r.log.Info("flow restored", map[string]interface{}{"flowId": flowID})
	return c, nil
}

// Release unloads a flow whose work is settled, such as after a submit or a
// clear. Its session survives, so a later Get restores it from the store.
func (r *FlowRegistry) Release(flowID string) {
	r.mu.Lock()
	c, ok := r.flows[flowID]
	if ok {
		delete(r.flows, flowID)
		metrics.ActiveFlows.Set(float64(len(r.flows)))
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	c.Flush()
	c.Close()
	r.log.Debug("flow released", map[string]interface{}{"flowId": flowID})
}

func (r *FlowRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// DeleteAllMatching drops every live flow whose keys fall under prefix.
// Pending saves are discarded, not flushed.
func (r *FlowRegistry) DeleteAllMatching(prefix string) {
	r.mu.Lock()
	var dropped []*booking.Controller
	for id, c := range r.flows {
		if strings.HasPrefix("booking:"+id+":", prefix) || strings.HasPrefix(r.sessionKey(id), prefix) {
			dropped = append(dropped, c)
			delete(r.flows, id)
		}
	}
	metrics.ActiveFlows.Set(float64(len(r.flows)))
	r.mu.Unlock()

	for _, c := range dropped {
		c.Close()
	}
	if len(dropped) > 0 {
		r.log.Info("flows dropped", map[string]interface{}{"prefix": prefix, "count": len(dropped)})
	}
}

// CloseAll saves pending edits and shuts every flow down.
func (r *FlowRegistry) CloseAll() {
	r.mu.Lock()
	flows := r.flows
	r.flows = make(map[string]*booking.Controller)
	metrics.ActiveFlows.Set(0)
	r.mu.Unlock()

	for _, c := range flows {
		c.Flush()
		c.Close()
	}
}
