package store

import (
	"testing"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/wire"
)

func TestRegistryAddAndLookupLocal(t *testing.T) {
	r := NewRegistry()
	tile := newTestTile()
	idx := r.AddLocal(tile)
	if idx != 0 {
		t.Fatalf("first AddLocal index = %d, want 0", idx)
	}
	if got := r.Local(idx); got != tile {
		t.Fatalf("Local(%d) = %p, want %p", idx, got, tile)
	}
	if got := r.Local(5); got != nil {
		t.Fatalf("Local(5) = %v, want nil", got)
	}
}

func TestRegistrySetAndGetRemote(t *testing.T) {
	r := NewRegistry()
	key := RemoteKey{WorkerIndex: 1, JobID: 7}
	bounds := geom.Bounds{North: 11, South: 10, East: 21, West: 20}

	if _, ok := r.Remote(key); ok {
		t.Fatal("expected no remote entry before SetRemote")
	}
	r.SetRemote(key, bounds, wire.StatusLoaded)
	rt, ok := r.Remote(key)
	if !ok {
		t.Fatal("expected remote entry after SetRemote")
	}
	if rt.Bounds != bounds || rt.Status != wire.StatusLoaded {
		t.Fatalf("remote = %+v, want bounds=%+v status=%v", rt, bounds, wire.StatusLoaded)
	}

	r.SetRemote(key, bounds, wire.StatusComplete)
	rt, _ = r.Remote(key)
	if rt.Status != wire.StatusComplete {
		t.Fatalf("status after update = %v, want Complete", rt.Status)
	}
}

func TestRegistryNeighborsExcludesSelfIncludesRemote(t *testing.T) {
	r := NewRegistry()
	a := newTestTile()
	b := newTestTile()
	r.AddLocal(a)
	r.AddLocal(b)
	r.SetRemote(RemoteKey{WorkerIndex: 2, JobID: 3}, geom.Bounds{North: 1, South: 0, East: 1, West: 0}, wire.StatusPending)

	neighbors := r.Neighbors(0)
	if len(neighbors) != 2 {
		t.Fatalf("Neighbors(0) returned %d entries, want 2", len(neighbors))
	}
	for _, n := range neighbors {
		if idx, ok := n.ID.(int); ok && idx == 0 {
			t.Fatal("Neighbors should exclude the local tile being resolved")
		}
	}
}
