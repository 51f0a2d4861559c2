package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-access-backend/internal/engine"
)

// machineUpdateRequest is the device check-in payload. Required fields
// are pointers so that "missing" and "zero" stay distinguishable; a
// report missing them, or carrying fields we don't know, comes from a
// firmware bug and must be rejected loudly rather than guessed at.
type machineUpdateRequest struct {
	MachineName          *string  `json:"machine_name"`
	Oops                 *bool    `json:"oops"`
	RFIDValue            *string  `json:"rfid_value"`
	Uptime               *float64 `json:"uptime"`
	Amps                 *float64 `json:"amps"`
	WifiSignalDB         *float64 `json:"wifi_signal_db"`
	WifiSignalPercent    *float64 `json:"wifi_signal_percent"`
	InternalTemperatureC *float64 `json:"internal_temperature_c"`
}

// PostMachineUpdate handles POST /api/machine/update.
func (h *Handler) PostMachineUpdate(c *gin.Context) {
	var req machineUpdateRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed report: " + err.Error()})
		return
	}
	switch {
	case req.MachineName == nil || *req.MachineName == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "machine_name is required"})
		return
	case req.Oops == nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "oops is required"})
		return
	case req.RFIDValue == nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "rfid_value is required"})
		return
	case req.Uptime == nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "uptime is required"})
		return
	}

	m, ok := h.set.Get(*req.MachineName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown machine: " + *req.MachineName})
		return
	}

	resp, events, err := m.ApplyReport(engine.Report{
		Oops:                 *req.Oops,
		RFIDValue:            *req.RFIDValue,
		Uptime:               *req.Uptime,
		Amps:                 req.Amps,
		WifiSignalDB:         req.WifiSignalDB,
		WifiSignalPercent:    req.WifiSignalPercent,
		InternalTemperatureC: req.InternalTemperatureC,
	})
	if err != nil {
		if errors.Is(err, engine.ErrInvalidReport) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.dispatch(events)
	c.JSON(http.StatusOK, resp)
}
