package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staytrack/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %q", store.Path())
	}
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		room, err := tx.CreateRoom(domain.Room{Base: domain.Base{OwnerID: "o1"}, Number: "A-101", Capacity: 2})
		if err != nil {
			return err
		}
		_, err = tx.CreateStudent(domain.Student{Base: domain.Base{OwnerID: "o1"}, Name: "Rahul", RoomID: &room.ID, Rent: decimal.NewFromInt(5000)})
		if err != nil {
			return err
		}
		_, err = tx.PutMenuEntry(domain.MenuEntry{Base: domain.Base{OwnerID: "o1"}, Day: time.Friday, Dinner: "Paneer"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	err = reloaded.View(ctx, func(v domain.TransactionView) error {
		students := v.ListStudents("o1")
		if len(students) != 1 || !students[0].Rent.Equal(decimal.NewFromInt(5000)) {
			t.Fatalf("unexpected students after reload: %+v", students)
		}
		if menu := v.ListMenuEntries("o1"); len(menu) != 1 || menu[0].Dinner != "Paneer" {
			t.Fatalf("unexpected menu after reload: %+v", menu)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSQLiteStoreWritesEveryBucket(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateHostel(domain.Hostel{Base: domain.Base{OwnerID: "o1"}, Name: "North"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 buckets, got %d", count)
	}
}

func TestSQLiteStoreSkipsPersistOnFailedTransaction(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteRoom("missing")
	}); err == nil {
		t.Fatalf("expected error")
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no persisted buckets, got %d", count)
	}
}
