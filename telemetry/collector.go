package telemetry

import (
	"sync"
	"time"
)

// Sizer is implemented by the template store and the definition cache.
type Sizer interface {
	Len() int
}

// MetricsCollector periodically samples store and cache sizes into gauges
type MetricsCollector struct {
	store    Sizer
	cache    Sizer
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector. cache may be nil.
func NewMetricsCollector(store, cache Sizer, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		store:    store,
		cache:    cache,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.store != nil {
		StoreDefinitions.Set(float64(mc.store.Len()))
	}
	if mc.cache != nil {
		CacheEntries.Set(float64(mc.cache.Len()))
	}
}
