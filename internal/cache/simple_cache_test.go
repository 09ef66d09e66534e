package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func freezeTime(t *testing.T) *time.Time {
	t.Helper()
	base := time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })
	return &base
}

func TestSimpleCache_SetGet_NoTTL(t *testing.T) {
	c := NewSimpleCache[string, int]()
	c.Set("a", 1, 0)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit with value 1, got ok=%v v=%v", ok, v)
	}
	if c.Len() != 1 {
		t.Fatalf("expected Len=1, got %d", c.Len())
	}
}

func TestSimpleCache_TTL_Expiry(t *testing.T) {
	clock := freezeTime(t)
	c := NewSimpleCache[string, string]()

	c.Set("k", "v", time.Second)
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit before expiry")
	}

	*clock = clock.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	c.PurgeExpired()
	if c.Len() != 0 {
		t.Fatalf("expected Len=0 after purge, got %d", c.Len())
	}
}

func TestSimpleCache_Delete_Clear(t *testing.T) {
	c := NewSimpleCache[int, int]()
	c.Set(1, 10, 0)
	c.Set(2, 20, 0)
	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Fatalf("expected key 1 to be deleted")
	}
	if c.Len() != 1 {
		t.Fatalf("expected Len=1, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected Len=0 after Clear, got %d", c.Len())
	}
}

func TestSimpleCache_GetOrLoad(t *testing.T) {
	clock := freezeTime(t)
	c := NewSimpleCache[string, []string]()
	loads := 0
	load := func() ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("tasks", time.Minute, load)
		if err != nil || len(v) != 2 {
			t.Fatalf("unexpected result %v %v", v, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}

	*clock = clock.Add(2 * time.Minute)
	if _, err := c.GetOrLoad("tasks", time.Minute, load); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", loads)
	}
}

func TestSimpleCache_GetOrLoad_ErrorNotCached(t *testing.T) {
	c := NewSimpleCache[string, int]()
	boom := errors.New("boom")

	if _, err := c.GetOrLoad("k", 0, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed load must not be cached")
	}
	v, err := c.GetOrLoad("k", 0, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected 7, got %v %v", v, err)
	}
}

func TestSimpleCache_GetOrLoad_Concurrent(t *testing.T) {
	c := NewSimpleCache[string, int]()
	var loads atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrLoad("k", 0, func() (int, error) {
				loads.Add(1)
				return 1, nil
			})
		}()
	}
	wg.Wait()
	if loads.Load() != 1 {
		t.Fatalf("expected one load, got %d", loads.Load())
	}
}

func TestSimpleCache_GetOrLoad_InvalidatedDuringLoad(t *testing.T) {
	for name, invalidate := range map[string]func(c *SimpleCache[string, int]){
		"delete": func(c *SimpleCache[string, int]) { c.Delete("tasks") },
		"clear":  func(c *SimpleCache[string, int]) { c.Clear() },
	} {
		t.Run(name, func(t *testing.T) {
			c := NewSimpleCache[string, int]()
			started := make(chan struct{})
			release := make(chan struct{})
			done := make(chan struct{})

			go func() {
				defer close(done)
				v, err := c.GetOrLoad("tasks", time.Minute, func() (int, error) {
					close(started)
					<-release
					return 1, nil
				})
				if err != nil || v != 1 {
					t.Errorf("expected the loaded value, got %v %v", v, err)
				}
			}()

			<-started
			invalidate(c)
			close(release)
			<-done

			if _, ok := c.Get("tasks"); ok {
				t.Fatalf("a load started before the invalidation must not be cached")
			}
			v, err := c.GetOrLoad("tasks", time.Minute, func() (int, error) { return 2, nil })
			if err != nil || v != 2 {
				t.Fatalf("expected a fresh load, got %v %v", v, err)
			}
		})
	}
}
