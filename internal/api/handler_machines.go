package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetMachines handles GET /api/machines: a settled snapshot of every
// machine, for dashboards and the admin UI.
func (h *Handler) GetMachines(c *gin.Context) {
	c.JSON(http.StatusOK, h.set.Snapshots())
}

// GetMachine handles GET /api/machines/:name.
func (h *Handler) GetMachine(c *gin.Context) {
	m, ok := h.machineByParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

// GetMachineEvents handles GET /api/machines/:name/events.
func (h *Handler) GetMachineEvents(c *gin.Context) {
	m, ok := h.machineByParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.hist.RecentForMachine(c.Request.Context(), m.Name(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// PostReloadUsers handles POST /api/reload-users: re-reads the roster
// file and reports the add/remove/update counts.
func (h *Handler) PostReloadUsers(c *gin.Context) {
	diff, err := h.dir.Reload()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, diff)
}

// PostReloadMachines handles POST /api/reload-machines. Policy changes
// (like an always_enabled flip) take effect on each machine's next
// report without any synthetic badge event.
func (h *Handler) PostReloadMachines(c *gin.Context) {
	if err := h.reg.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "machines": len(h.reg.Names())})
}
