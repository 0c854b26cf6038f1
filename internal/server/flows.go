// internal/server/flows.go
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkbook/internal/booking"
	apperrors "inkbook/internal/common/errors"
)

type openFlowRequest struct {
	FlowID     string `json:"flowId"`
	NewBooking bool   `json:"newBooking"`
}

type updateFieldRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

func (s *Server) flow(c *gin.Context) (*booking.Controller, bool) {
	ctrl, err := s.deps.Flows.Get(c.Param("id"))
	if err != nil {
		s.fail(c, "flow", err)
		return nil, false
	}
	return ctrl, true
}

func (s *Server) openFlow(c *gin.Context) {
	var req openFlowRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	ctrl, err := s.deps.Flows.Open(req.FlowID, req.NewBooking)
	if err != nil {
		s.fail(c, "open_flow", err)
		return
	}
	c.JSON(http.StatusCreated, ctrl.Snapshot())
}

func (s *Server) getFlow(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (s *Server) updateField(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}

	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	field, err := booking.ParseField(req.Field)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := ctrl.UpdateField(field, req.Value); err != nil {
		if errors.Is(err, booking.ErrInvalidFieldType) || errors.Is(err, booking.ErrUnknownField) {
			badRequest(c, err.Error())
			return
		}
		s.fail(c, "update_field", err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (s *Server) nextStep(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}
	advanced := ctrl.GoToNextStep()
	status := http.StatusOK
	if !advanced {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"valid": advanced, "state": ctrl.Snapshot()})
}

func (s *Server) previousStep(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}
	moved := ctrl.GoToPreviousStep()
	c.JSON(http.StatusOK, gin.H{"moved": moved, "state": ctrl.Snapshot()})
}

func (s *Server) submit(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}

	res := ctrl.SubmitForm(c.Request.Context())
	if res.Success {
		state := ctrl.Snapshot()
		s.deps.Flows.Release(ctrl.FlowID())
		c.JSON(http.StatusCreated, gin.H{
			"success":   true,
			"bookingId": res.BookingID,
			"state":     state,
		})
		return
	}

	status := http.StatusUnprocessableEntity
	body := gin.H{"success": false, "errors": res.Errors, "state": ctrl.Snapshot()}
	if res.Err != nil {
		stdErr := apperrors.Normalize(res.Err)
		status = statusFor(stdErr)
		body["error"] = string(stdErr.Code)
		body["retryable"] = stdErr.Retryable
	}
	c.JSON(status, body)
}

func (s *Server) flush(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}
	ctrl.Flush()
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (s *Server) clearFlow(c *gin.Context) {
	ctrl, ok := s.flow(c)
	if !ok {
		return
	}
	ctrl.ClearForm()
	state := ctrl.Snapshot()
	s.deps.Flows.Release(ctrl.FlowID())
	c.JSON(http.StatusOK, state)
}
