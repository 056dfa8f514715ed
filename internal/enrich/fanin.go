package enrich

import (
	"sync"

	"github.com/aiwire/observatory/internal/models"
)

// FanInCoordinator joins the parallel entity-extract and topic-assign
// branches. State is process-local; a crash between branch completions loses
// it, which the recovery sweeper compensates for by re-deriving readiness
// from the artifact store.
type FanInCoordinator struct {
	mu      sync.Mutex
	arrived map[string]map[models.EnrichStage]bool
}

// NewFanInCoordinator creates an empty coordinator.
func NewFanInCoordinator() *FanInCoordinator {
	return &FanInCoordinator{
		arrived: make(map[string]map[models.EnrichStage]bool),
	}
}

// BranchDone records a branch completion. It returns true exactly once per
// event: on the call that completes the pair. The event's state is cleared
// atomically with the decision, so duplicate branch reports after the fire
// start a fresh round instead of double-firing.
func (c *FanInCoordinator) BranchDone(eventID string, stage models.EnrichStage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	stages := c.arrived[eventID]
	if stages == nil {
		stages = make(map[models.EnrichStage]bool)
		c.arrived[eventID] = stages
	}
	stages[stage] = true

	if stages[models.StageEntityExtract] && stages[models.StageTopicAssign] {
		delete(c.arrived, eventID)
		return true
	}
	return false
}

// Forget drops any partial state for an event, used when a branch fails and
// the event leaves the enrichment flow.
func (c *FanInCoordinator) Forget(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.arrived, eventID)
}

// Pending reports how many events are waiting on their second branch.
func (c *FanInCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.arrived)
}
