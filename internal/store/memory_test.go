package store

import (
	"sync"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	store.Update(HostSnapshot{
		ID:        7,
		Hostname:  "core1.example.net",
		Status:    StatusOK,
		RoundID:   "r1",
		CheckedAt: time.Now(),
		Values:    []Value{{VarBind: ".1.3.6.1.2.1.1.5.0", OID: ".1.3.6.1.2.1.1.5.0", Type: "OctetString", Value: "core1"}},
	})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].Hostname != "core1.example.net" {
		t.Errorf("GetAll()[0].Hostname = %v, want %v", all[0].Hostname, "core1.example.net")
	}
	if len(all[0].Values) != 1 || all[0].Values[0].Value != "core1" {
		t.Errorf("GetAll()[0].Values = %+v, want one value core1", all[0].Values)
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()

	store.Update(HostSnapshot{ID: 1, Status: StatusOK})
	store.Update(HostSnapshot{ID: 1, Status: StatusDown})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].Status != StatusDown {
		t.Errorf("GetAll()[0].Status = %v, want %v", all[0].Status, StatusDown)
	}
}

func TestMemoryStore_GetAllOrderedByID(t *testing.T) {
	store := NewMemoryStore()

	for _, id := range []uint64{30, 10, 20} {
		store.Update(HostSnapshot{ID: id})
	}

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %v items, want 3", len(all))
	}
	for i, want := range []uint64{10, 20, 30} {
		if all[i].ID != want {
			t.Errorf("GetAll()[%d].ID = %d, want %d", i, all[i].ID, want)
		}
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := NewMemoryStore()
	store.Update(HostSnapshot{ID: 4, Hostname: "edge4"})

	got, ok := store.Get(4)
	if !ok {
		t.Fatal("Get(4) ok = false, want true")
	}
	if got.Hostname != "edge4" {
		t.Errorf("Get(4).Hostname = %q, want %q", got.Hostname, "edge4")
	}

	if _, ok := store.Get(5); ok {
		t.Error("Get(5) ok = true, want false")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(HostSnapshot{ID: 1, Hostname: "a"})
	}()

	select {
	case s := <-ch:
		if s.Hostname != "a" {
			t.Errorf("received Hostname = %v, want %v", s.Hostname, "a")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		store.Update(HostSnapshot{ID: 1})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)
	store.Unsubscribe(ch) // second call is a no-op

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// a subscriber that never reads
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < 2*subscriberBuffer; i++ {
			store.Update(HostSnapshot{ID: 1})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	const workers, updates = 10, 100

	for i := 0; i < workers; i++ {
		wg.Add(3)
		go func(id uint64) {
			defer wg.Done()
			for j := 0; j < updates; j++ {
				store.Update(HostSnapshot{ID: id, Status: StatusOK})
			}
		}(uint64(i))
		go func() {
			defer wg.Done()
			for j := 0; j < updates; j++ {
				_ = store.GetAll()
			}
		}()
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if got := len(store.GetAll()); got != workers {
		t.Errorf("GetAll() = %d items, want %d", got, workers)
	}
}
