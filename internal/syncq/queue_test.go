package syncq

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestReplayKeepsUndelivered(t *testing.T) {
	q := New(t.TempDir())
	if n, err := q.Len(); err != nil || n != 0 {
		t.Fatalf("empty queue: n=%d err=%v", n, err)
	}
	for day := 1; day <= 3; day++ {
		cmd, err := NewCommand(KindDayResult, map[string]int{"day": day})
		if err != nil {
			t.Fatal(err)
		}
		if err := q.Push(cmd); err != nil {
			t.Fatal(err)
		}
	}

	offline := errors.New("offline")
	calls := 0
	sent, err := q.Replay(func(c Command) error {
		calls++
		if calls == 2 {
			return offline
		}
		return nil
	})
	if !errors.Is(err, offline) || sent != 1 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}

	left, err := q.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 {
		t.Fatalf("want 2 queued, got %d", len(left))
	}
	var head struct {
		Day int `json:"day"`
	}
	if err := json.Unmarshal(left[0].Body, &head); err != nil {
		t.Fatal(err)
	}
	if head.Day != 2 || left[0].Attempts != 1 {
		t.Fatalf("unexpected head %+v", left[0])
	}
	if left[1].Kind != KindDayResult || left[1].QueuedAt.IsZero() {
		t.Fatalf("unexpected tail %+v", left[1])
	}

	sent, err = q.Replay(func(Command) error { return nil })
	if err != nil || sent != 2 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
	if n, _ := q.Len(); n != 0 {
		t.Fatalf("queue not drained: %d", n)
	}
}
