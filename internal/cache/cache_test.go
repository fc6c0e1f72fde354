package cache

import "testing"

func TestFIFOEvictsOldest(t *testing.T) {
	c := New(2, FIFO)
	c.Put(1, 10)
	c.Put(2, 20)
	c.Put(3, 30) // evicts addr 1

	if _, ok := c.Get(1); ok {
		t.Fatalf("addr 1 should have been evicted")
	}
	if v, ok := c.Get(2); !ok || v != 20 {
		t.Fatalf("addr 2: got (%d,%v), want (20,true)", v, ok)
	}
	if v, ok := c.Get(3); !ok || v != 30 {
		t.Fatalf("addr 3: got (%d,%v), want (30,true)", v, ok)
	}
}

func TestFIFOAccessDoesNotReorder(t *testing.T) {
	c := New(2, FIFO)
	c.Put(1, 10)
	c.Put(2, 20)
	c.Get(1) // FIFO: touching 1 must not save it from eviction
	c.Put(3, 30)

	if _, ok := c.Get(1); ok {
		t.Fatalf("FIFO should evict addr 1 regardless of the intervening Get")
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, LRU)
	c.Put(1, 10)
	c.Put(2, 20)
	c.Get(1) // 1 is now most-recently-used; 2 becomes the victim
	c.Put(3, 30)

	if _, ok := c.Get(2); ok {
		t.Fatalf("addr 2 should have been evicted under LRU")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatalf("addr 1 should still be resident under LRU")
	}
}

func TestUpdateMarksDirtyOnlyWhenResident(t *testing.T) {
	c := New(2, FIFO)
	c.Update(1, 99) // absent: no-op, write-allocate is the caller's job
	if _, ok := c.Get(1); ok {
		t.Fatalf("Update on an absent addr must not insert it")
	}

	c.Put(1, 10)
	c.Update(1, 11)
	entries := c.DirtyEntries()
	if len(entries) != 1 || entries[0].Addr != 1 || entries[0].Data != 11 || !entries[0].Dirty {
		t.Fatalf("unexpected dirty entries: %+v", entries)
	}
}

func TestPutOnResidentOverwritesAndClearsDirty(t *testing.T) {
	c := New(2, FIFO)
	c.Put(1, 10)
	c.Update(1, 11)
	c.Put(1, 12) // re-fill from memory: clean again, not a second insertion

	if c.Len() != 1 {
		t.Fatalf("Put on a resident addr must not grow the cache, got len=%d", c.Len())
	}
	if len(c.DirtyEntries()) != 0 {
		t.Fatalf("Put must clear the dirty bit")
	}
	if v, _ := c.Get(1); v != 12 {
		t.Fatalf("got %d, want 12", v)
	}
}

func TestInvalidateClearsEverything(t *testing.T) {
	c := New(4, LRU)
	c.Put(1, 10)
	c.Put(2, 20)
	c.Invalidate()

	if c.Len() != 0 {
		t.Fatalf("Len after Invalidate = %d, want 0", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Fatalf("addr 1 should be gone after Invalidate")
	}
}

func TestHitMissCounters(t *testing.T) {
	c := New(1, FIFO)
	c.Get(1) // miss
	c.Put(1, 10)
	c.Get(1) // hit
	c.Get(1) // hit

	if c.Hits() != 2 {
		t.Fatalf("Hits() = %d, want 2", c.Hits())
	}
	if c.Misses() != 1 {
		t.Fatalf("Misses() = %d, want 1", c.Misses())
	}
}

func TestNonPositiveCapacityClampsToOne(t *testing.T) {
	c := New(0, FIFO)
	if c.Capacity() != 1 {
		t.Fatalf("Capacity() = %d, want 1", c.Capacity())
	}
}
