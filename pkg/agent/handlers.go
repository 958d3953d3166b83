package agent

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mscrnt/memprobe/internal/version"
)

// SysInfo describes the host an agent runs on
type SysInfo struct {
	Timestamp time.Time  `json:"timestamp"`
	Agent     string     `json:"agent"`
	Host      HostInfo   `json:"host"`
	CPU       CPUInfo    `json:"cpu"`
	Memory    MemoryInfo `json:"memory"`
}

// HostInfo contains host information
type HostInfo struct {
	Hostname        string `json:"hostname"`
	Uptime          uint64 `json:"uptime"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Architecture    string `json:"architecture"`
}

// CPUInfo contains CPU information
type CPUInfo struct {
	VendorID      string `json:"vendor_id"`
	ModelName     string `json:"model_name"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
}

// MemoryInfo contains memory information
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

func collectSysInfo() SysInfo {
	info := SysInfo{
		Timestamp: time.Now(),
		Agent:     version.Get().Short(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Host = HostInfo{
			Hostname:        hostInfo.Hostname,
			Uptime:          hostInfo.Uptime,
			OS:              hostInfo.OS,
			Platform:        hostInfo.Platform,
			PlatformVersion: hostInfo.PlatformVersion,
			KernelVersion:   hostInfo.KernelVersion,
			Architecture:    runtime.GOARCH,
		}
	}

	if cores, err := cpu.Counts(false); err == nil {
		info.CPU.PhysicalCores = cores
	}
	if cores, err := cpu.Counts(true); err == nil {
		info.CPU.LogicalCores = cores
	}
	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPU.VendorID = cpuInfo[0].VendorID
		info.CPU.ModelName = cpuInfo[0].ModelName
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.Memory = MemoryInfo{
			Total:       vmStat.Total,
			Available:   vmStat.Available,
			UsedPercent: vmStat.UsedPercent,
		}
	}

	return info
}

// sysinfoHandler returns system information as JSON
func sysinfoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(collectSysInfo()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
