// Package profiler samples frame rate and memory statistics and reports them
// through the structured logger.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"go.uber.org/zap"
)

// Sample is one reporting interval's worth of statistics.
type Sample struct {
	FPS          float64
	HeapMB       float64
	AllocRateMBs float64
	SysMB        float64
	NumGC        uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Stats are logged at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Sample
	log            *zap.Logger
}

// NewProfiler creates a new Profiler reporting once per interval. A
// non-positive interval defaults to one second.
//
// Parameters:
//   - interval: the reporting interval
//   - log: the logger stats are written to, or nil for the global one
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration, log *zap.Logger) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logger.Named("profiler")
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		log:            log,
	}
}

// Tick should be called once per frame. When the interval has elapsed it
// samples FPS, heap usage, allocation rate and GC pauses and logs them.
//
// Returns:
//   - bool: true if stats were logged this tick
func (p *Profiler) Tick() bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)

	s := Sample{
		FPS:    float64(p.frameCount) / elapsed.Seconds(),
		HeapMB: float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:  float64(p.memStats.Sys) / 1024 / 1024,
		NumGC:  p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMBs = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if s.NumGC > 0 {
		// PauseNs is a ring of the last 256 pauses.
		s.LastPauseUs = p.memStats.PauseNs[(s.NumGC-1)%256] / 1000

		start := p.lastGCCount
		if s.NumGC-start > 256 {
			start = s.NumGC - 256
		}
		for i := start; i < s.NumGC; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.log.Info("frame stats",
		zap.Float64("fps", s.FPS),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_mb_s", s.AllocRateMBs),
		zap.Uint32("gc", s.NumGC),
		zap.Uint64("gc_last_us", s.LastPauseUs),
		zap.Uint64("gc_max_us", s.MaxPauseUs),
		zap.Float64("sys_mb", s.SysMB))

	p.last = s
	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = s.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged sample.
func (p *Profiler) Last() Sample {
	return p.last
}
