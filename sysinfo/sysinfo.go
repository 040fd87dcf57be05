package sysinfo

import (
	"os"
	"runtime"
	"sync"
	"time"
)

// Info 运行环境快照。
// OS/Arch 取 runtime.GOOS/GOARCH，平台白名单用 OS 值匹配。
type Info struct {
	OS        string    `json:"os"`
	Arch      string    `json:"arch"`
	NumCPU    int       `json:"numCpu"`
	GoVersion string    `json:"goVersion"`
	Hostname  string    `json:"hostname"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
}

var (
	once    sync.Once
	current Info
)

// Current 返回当前进程的环境信息（首次调用时采集并缓存）。
func Current() Info {
	once.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		current = Info{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
			Hostname:  hostname,
			PID:       os.Getpid(),
			StartedAt: time.Now(),
		}
	})
	return current
}

// MemorySample 一次内存采样。
type MemorySample struct {
	Alloc      uint64    `json:"alloc"`
	TotalAlloc uint64    `json:"totalAlloc"`
	Sys        uint64    `json:"sys"`
	NumGC      uint32    `json:"numGc"`
	Goroutines int       `json:"goroutines"`
	TakenAt    time.Time `json:"takenAt"`
}

// SampleMemory 采集当前内存与 goroutine 状态。
func SampleMemory() MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemorySample{
		Alloc:      ms.Alloc,
		TotalAlloc: ms.TotalAlloc,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
		TakenAt:    time.Now(),
	}
}
