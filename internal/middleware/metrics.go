package middleware

import (
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MemoryStats is a point-in-time runtime snapshot.
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
	AllocMB    uint64 `json:"alloc_mb"`
	SysMB      uint64 `json:"sys_mb"`
}

// MemoryMonitor samples runtime memory stats on an interval.
type MemoryMonitor struct {
	logger   *logrus.Logger
	stats    *MemoryStats
	mutex    sync.RWMutex
	stopChan chan struct{}
	interval time.Duration
}

func NewMemoryMonitor(logger *logrus.Logger, interval time.Duration) *MemoryMonitor {
	return &MemoryMonitor{
		logger:   logger,
		stats:    &MemoryStats{},
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

func (m *MemoryMonitor) Start() {
	go m.monitor()
}

func (m *MemoryMonitor) Stop() {
	close(m.stopChan)
}

func (m *MemoryMonitor) monitor() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.updateStats()
			m.logStats()
		}
	}
}

func (m *MemoryMonitor) updateStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.stats.Alloc = ms.Alloc
	m.stats.TotalAlloc = ms.TotalAlloc
	m.stats.Sys = ms.Sys
	m.stats.NumGC = ms.NumGC
	m.stats.Goroutines = runtime.NumGoroutine()
	m.stats.AllocMB = ms.Alloc / 1024 / 1024
	m.stats.SysMB = ms.Sys / 1024 / 1024
}

func (m *MemoryMonitor) logStats() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	m.logger.WithFields(logrus.Fields{
		"alloc_mb":   m.stats.AllocMB,
		"sys_mb":     m.stats.SysMB,
		"num_gc":     m.stats.NumGC,
		"goroutines": m.stats.Goroutines,
	}).Debug("Memory stats")

	// Headless browser sessions are the usual culprit when this fires.
	if m.stats.AllocMB > 1536 {
		m.logger.WithFields(logrus.Fields{
			"alloc_mb": m.stats.AllocMB,
			"sys_mb":   m.stats.SysMB,
		}).Warn("High memory usage detected")
	}
}

func (m *MemoryMonitor) GetStats() MemoryStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return *m.stats
}

// MetricsEndpoint serves the snapshot as JSON for /api/status consumers.
func (m *MemoryMonitor) MetricsEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := m.GetStats()
		c.JSON(200, gin.H{
			"memory": stats,
		})
	}
}
