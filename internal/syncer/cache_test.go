package syncer

import (
	"context"
	"sync"
	"testing"

	"taskdeck-cli/internal/model"
)

type memCache struct {
	mu     sync.Mutex
	writes []string
}

func (c *memCache) SaveSnapshot(ctx context.Context, server string, snap model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, snap.Tasks[0].ID)
	return nil
}

func TestLoop_CacheKeepsNewestSnapshot(t *testing.T) {
	c := &memCache{}
	l := New(nil, nil, Options{Cache: c, Server: "http://svc/api"})
	snap := func(id string) model.Snapshot {
		return model.Snapshot{Tasks: []model.Task{{ID: id}}}
	}

	// seq 3 finishes its write before seq 2 gets there.
	l.saveCache(context.Background(), 3, snap("newer"))
	l.saveCache(context.Background(), 2, snap("older"))
	l.saveCache(context.Background(), 4, snap("newest"))

	if len(c.writes) != 2 || c.writes[0] != "newer" || c.writes[1] != "newest" {
		t.Fatalf("unexpected cache writes %v", c.writes)
	}
}
