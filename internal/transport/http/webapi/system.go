package webapi

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	httptransport "github.com/SamyKr/VisuAI-sub000/internal/transport/http"
)

// handleSystem reports host stats.
// @Summary Host stats
// @Description CPU, memory and host uptime of the machine running the server
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "host stats"
// @Router /system [get]
func (s *Service) handleSystem(c *gin.Context) {
	ctx := c.Request.Context()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to read memory stats", gin.H{"error": err.Error()})
		return
	}

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to read host uptime", gin.H{"error": err.Error()})
		return
	}

	var cpuPercent float64
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}

	data := gin.H{
		"cpu_percent":         cpuPercent,
		"cpu_count":           runtime.NumCPU(),
		"memory_total_mb":     vm.Total / 1024 / 1024,
		"memory_used_mb":      vm.Used / 1024 / 1024,
		"memory_used_percent": vm.UsedPercent,
		"host_uptime_s":       uptime,
		"goroutines":          runtime.NumGoroutine(),
	}

	httptransport.RespondSuccess(c, http.StatusOK, data, "host stats retrieved")
}
