package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydrakit/hydra/pkg/models"
)

// fakeHost creates fakeChild sessions and tracks concurrency.
type fakeHost struct {
	mu       sync.Mutex
	nextID   int
	startErr error

	// sessions backs OpenSession for tests exercising parent chains.
	sessions map[string]*models.Session

	// run controls fakeChild behavior for every child this host spawns.
	run func(ctx context.Context, id string, prompt string) (*models.SessionOutcome, error)

	active  int32
	maxSeen int32
}

func (h *fakeHost) StartChildSession(ctx context.Context, parent *models.Session, personName string) (ChildSession, error) {
	if h.startErr != nil {
		return nil, h.startErr
	}
	h.mu.Lock()
	h.nextID++
	id := fmt.Sprintf("sess-%d", h.nextID)
	h.mu.Unlock()
	return &fakeChild{host: h, id: id}, nil
}

func (h *fakeHost) OpenSession(ctx context.Context, id string) (*models.Session, error) {
	return h.sessions[id], nil
}

type fakeChild struct {
	host *fakeHost
	id   string
}

func (c *fakeChild) ID() string { return c.id }

func (c *fakeChild) WaitForCompletion(ctx context.Context, prompt string, cfg *models.TaskConfig, urging string) (*models.SessionOutcome, error) {
	n := atomic.AddInt32(&c.host.active, 1)
	for {
		max := atomic.LoadInt32(&c.host.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&c.host.maxSeen, max, n) {
			break
		}
	}
	defer atomic.AddInt32(&c.host.active, -1)

	if c.host.run != nil {
		return c.host.run(ctx, c.id, prompt)
	}
	return okOutcome(c.id), nil
}

func okOutcome(id string) *models.SessionOutcome {
	now := time.Now()
	return &models.SessionOutcome{
		SessionID: id,
		Success:   true,
		Result:    "done",
		StartTime: now,
		EndTime:   now.Add(time.Millisecond),
	}
}

func parallelConfig(strategy models.ResultStrategy, maxConcurrency int) *models.TaskConfig {
	return &models.TaskConfig{
		Name:              "fanout",
		PromptTemplate:    "work on {{ .Item.Name }}",
		UrgingTemplate:    "keep going",
		MaxRecursionLevel: 1,
		Parallel:          &models.ParallelPolicy{
			Mode:           models.ModeExternalList,
			MaxConcurrency: maxConcurrency,
			ResultStrategy: strategy,
		},
	}
}

func workItems(n int) []models.WorkItem {
	items := make([]models.WorkItem, n)
	for i := range items {
		items[i] = models.WorkItem{Name: fmt.Sprintf("item[%d]", i), Value: i}
	}
	return items
}
