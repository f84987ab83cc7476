package core

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultRulesEngineRegistersPolicies(t *testing.T) {
	got := NewDefaultRulesEngine().Rules()
	want := []string{"room_capacity", "room_number_unique", "payment_month_unique"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rules %v", got)
	}
}

func TestOpenPersistentStoreDrivers(t *testing.T) {
	ctx := context.Background()

	store, closer, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageMemory}, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close memory: %v", err)
	}
	svc := NewService(store)
	if _, _, err := svc.CreateRoom(ctx, ownerA, Room{Number: "1", Capacity: 1}); err != nil {
		t.Fatalf("memory store unusable: %v", err)
	}

	if _, _, err := OpenPersistentStore(ctx, StorageConfig{Driver: "cassandra"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}

	path := filepath.Join(t.TempDir(), "state.db")
	store, closer, err = OpenPersistentStore(ctx, StorageConfig{Driver: StorageSQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	room, _, err := NewService(store).CreateRoom(ctx, ownerA, Room{Number: "A-101", Capacity: 2})
	if err != nil {
		t.Fatalf("sqlite create: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}

	reopened, closer, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageSQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer closer.Close()
	got, err := NewService(reopened).GetRoom(ctx, ownerA, room.ID)
	if err != nil || got.Number != "A-101" {
		t.Fatalf("expected persisted room, got %+v err=%v", got, err)
	}
}
