package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// FitMetrics keeps a rolling average of per-region fit times and the
// produced/skipped counts of the current build. Safe for concurrent use by
// the fit workers.
type FitMetrics struct {
	mu sync.Mutex

	avgCounter uint8
	msTimes    [AVG_COUNT]float64
	samples    int
	produced   int
	skipped    int
}

func NewFitMetrics() *FitMetrics {
	return &FitMetrics{}
}

// Record stores one region fit. produced is false for skipped regions.
func (fm *FitMetrics) Record(elapsed time.Duration, produced bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	fm.msTimes[fm.avgCounter] = float64(elapsed.Microseconds()) / 1000.0
	fm.avgCounter++
	fm.avgCounter %= AVG_COUNT
	if fm.samples < int(AVG_COUNT) {
		fm.samples++
	}

	if produced {
		fm.produced++
	} else {
		fm.skipped++
	}
}

// AverageFitMS averages the last AVG_COUNT samples.
func (fm *FitMetrics) AverageFitMS() float64 {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.samples == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < fm.samples; i++ {
		sum += fm.msTimes[i]
	}
	return sum / float64(fm.samples)
}

func (fm *FitMetrics) Counts() (produced, skipped int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.produced, fm.skipped
}
