package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-access-backend/internal/engine"
)

// controlResult runs an operator command and renders the outcome. A
// redundant command (locking an already-locked machine) is reported as
// "no_change" so the operator can tell their command had no effect.
func (h *Handler) controlResult(c *gin.Context, op func() ([]engine.Event, error)) {
	events, err := op()
	if err == nil {
		h.dispatch(events)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	for _, noop := range []error{
		engine.ErrAlreadyLockedOut, engine.ErrNotLockedOut,
		engine.ErrAlreadyOopsed, engine.ErrNotOopsed,
	} {
		if errors.Is(err, noop) {
			c.JSON(http.StatusOK, gin.H{"status": "no_change", "detail": err.Error()})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *Handler) machineByParam(c *gin.Context) (*engine.Machine, bool) {
	name := c.Param("name")
	m, ok := h.set.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown machine: " + name})
		return nil, false
	}
	return m, true
}

// PostLockout handles POST /api/machine/lockout/:name.
func (h *Handler) PostLockout(c *gin.Context) {
	if m, ok := h.machineByParam(c); ok {
		h.controlResult(c, m.Lock)
	}
}

// DeleteLockout handles DELETE /api/machine/lockout/:name.
func (h *Handler) DeleteLockout(c *gin.Context) {
	if m, ok := h.machineByParam(c); ok {
		h.controlResult(c, m.Unlock)
	}
}

// PostOops handles POST /api/machine/oops/:name.
func (h *Handler) PostOops(c *gin.Context) {
	if m, ok := h.machineByParam(c); ok {
		h.controlResult(c, m.Oops)
	}
}

// DeleteOops handles DELETE /api/machine/oops/:name.
func (h *Handler) DeleteOops(c *gin.Context) {
	if m, ok := h.machineByParam(c); ok {
		h.controlResult(c, m.ClearOops)
	}
}
