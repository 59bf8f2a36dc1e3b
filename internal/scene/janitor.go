package scene

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/logging"
	"github.com/go-gpviz/gpviz/internal/telemetry"
)

// Janitor options
type janitorConfig struct {
	maxScenes   int
	maxIdleTime time.Duration
	rebuildTime time.Duration
}

func newJanitor(config janitorConfig) *janitor {
	return &janitor{opts: config}
}

// The janitor keeps the scene set bounded. It evicts scenes that have been
// idle longer than the configured TTL and, when the set grows over capacity,
// the least recently touched ones.
type janitor struct {
	opts janitorConfig
}

// abstraction layer for listing scene snapshots
type fetchStatesFn func() []State

// abstraction layer for evicting a group of scenes, returns the number evicted
type evictScenesFn func(ids []uuid.UUID) int

// processOutdatedScenes collects the scenes whose last touch is older than the
// idle limit and performs bulk eviction.
func (j *janitor) processOutdatedScenes(fetchFn fetchStatesFn, evictFn evictScenesFn) int {
	states := fetchFn()

	var ids []uuid.UUID
	for i := range states {
		if time.Since(states[i].UpdatedAt) > j.opts.maxIdleTime {
			ids = append(ids, states[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0
	}
	return evictFn(ids)
}

// processOverCapScenes sorts the scenes by last touch and evicts the oldest
// ones until the set fits the configured capacity again.
func (j *janitor) processOverCapScenes(fetchFn fetchStatesFn, evictFn evictScenesFn) int {
	states := fetchFn()

	over := len(states) - j.opts.maxScenes
	if over <= 0 {
		return 0
	}

	sort.Slice(states, func(i, k int) bool {
		return states[i].UpdatedAt.UnixNano() < states[k].UpdatedAt.UnixNano()
	})

	ids := make([]uuid.UUID, 0, over)
	for i := range states[:over] {
		ids = append(ids, states[i].ID)
	}
	return evictFn(ids)
}

// Janitor loop, runs the eviction passes on every tick
func (j *janitor) schedule(ctx context.Context, fetchFn fetchStatesFn, evictFn evictScenesFn) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(j.opts.rebuildTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if j.opts.maxIdleTime > 0 {
				if n := j.processOutdatedScenes(fetchFn, evictFn); n > 0 {
					logger.Infof("evicted idle scenes, count: %d", n)
				}
			}
			if j.opts.maxScenes > 0 {
				if n := j.processOverCapScenes(fetchFn, evictFn); n > 0 {
					logger.Infof("evicted scenes over capacity, count: %d", n)
				}
			}
			telemetry.RecordScenesLive(ctx, len(fetchFn()))
		case <-ctx.Done():
			return
		}
	}
}
