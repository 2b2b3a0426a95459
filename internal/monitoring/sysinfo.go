package monitoring

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is the host snapshot reported by the health endpoint.
type SystemInfo struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemUsedMB     uint64  `json:"memUsedMb"`
	MemTotalMB    uint64  `json:"memTotalMb"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
}

// CollectSystemInfo samples host CPU, memory and uptime. Individual probe
// failures leave that field zero rather than failing the whole snapshot.
func CollectSystemInfo() SystemInfo {
	var info SystemInfo

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemUsedMB = vm.Used / 1024 / 1024
		info.MemTotalMB = vm.Total / 1024 / 1024
	}
	if uptime, err := host.Uptime(); err == nil {
		info.UptimeSeconds = uptime
	}

	return info
}
