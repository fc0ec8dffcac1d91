package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/store/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) store.Store {
		return New().WithClock(now)
	})
}

func TestOutOfOrderClockStillListsNewestFirst(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC),
	}
	i := 0
	s := New().WithClock(func() time.Time {
		ts := times[i]
		i++
		return ts
	})

	ctx := context.Background()
	for _, u := range []string{"https://ten", "https://nine", "https://eleven"} {
		if _, err := s.Insert(ctx, "u1", u, ""); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	list, _ := s.List(ctx, "u1")
	got := []string{list[0].URL, list[1].URL, list[2].URL}
	want := []string{"https://eleven", "https://ten", "https://nine"}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("List() order = %v, want %v", got, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b, err := s.Insert(ctx, "u1", "https://example.com", "")
			if err == nil {
				_ = s.Delete(ctx, b.ID, "u1")
			}
		}()
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx, "u1")
		}()
	}

	wg.Wait()

	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after every insert was deleted", s.Count())
	}
}
