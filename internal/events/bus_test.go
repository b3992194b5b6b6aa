package events

import (
	"sync"
	"testing"
)

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	b := NewBus()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	b.RequestReload("oauth success")

	for i, s := range []*Subscription{s1, s2} {
		select {
		case req := <-s.C:
			if req.Reason != "oauth success" {
				t.Errorf("subscriber %d: Reason = %q", i, req.Reason)
			}
		default:
			t.Errorf("subscriber %d: no request delivered", i)
		}
	}
}

func TestBus_CoalescesPendingRequests(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	defer s.Close()

	b.RequestReload("first")
	b.RequestReload("second")
	b.RequestReload("third")

	req := <-s.C
	if req.Reason != "first" {
		t.Errorf("Reason = %q, want first", req.Reason)
	}
	select {
	case extra := <-s.C:
		t.Errorf("unexpected second request %+v", extra)
	default:
	}
}

func TestBus_CloseUnsubscribes(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}

	s.Close()
	s.Close()

	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
	if _, ok := <-s.C; ok {
		t.Error("channel should be closed")
	}

	b.RequestReload("after close")
}

func TestBus_ConcurrentPublishers(t *testing.T) {
	b := NewBus()
	s := b.Subscribe()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RequestReload("tick")
		}()
	}
	wg.Wait()

	if len(s.C) != 1 {
		t.Errorf("pending = %d, want 1", len(s.C))
	}
}
