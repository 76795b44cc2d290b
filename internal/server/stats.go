package server

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// Stats is the body of GET /stats.
type Stats struct {
	Connections int     `json:"connections"`
	Messages    int     `json:"messages"`
	RSSBytes    uint64  `json:"rss_bytes"`
	CPUPercent  float64 `json:"cpu_percent"`
}

// processUsage reports memory and CPU usage of the running server.
func processUsage() (uint64, float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
