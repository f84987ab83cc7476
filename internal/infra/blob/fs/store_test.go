package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"staytrack/internal/blob/core"
)

func TestFilesystemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := New(root, "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	key := "owners/o1/students/s1/id"
	info, err := store.Put(ctx, key, strings.NewReader("scan"), core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"kind": "id"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.URL != "http://localhost:8080/files/owners/o1/students/s1/id" {
		t.Fatalf("unexpected url %s", info.URL)
	}
	if info.ETag == "" || info.Size != 4 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "owners", "o1", "students", "s1", "id.meta")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}

	if _, err := store.Put(ctx, key, strings.NewReader("rescan"), core.PutOptions{ContentType: "image/jpeg"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	head, err := store.Head(ctx, key)
	if err != nil || head.Size != 6 || head.ContentType != "image/jpeg" {
		t.Fatalf("head after overwrite: %v %+v", err, head)
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "rescan" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := store.Put(ctx, "owners/o2/students/s9/profile", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "owners/o1/")
	if err != nil || len(list) != 1 || list[0].Key != key {
		t.Fatalf("list: %v %+v", err, list)
	}

	ok, err := store.Delete(ctx, key)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, key)
	if err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilesystemStoreRejectsBadKeys(t *testing.T) {
	store, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "/abs", "a/../../b", "a//b", "./a"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestFilesystemPresign(t *testing.T) {
	store, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	url, err := store.PresignURL(context.Background(), "a/b", core.SignedURLOptions{Method: "get"})
	if err != nil || url != "http://local.blob/a/b" {
		t.Fatalf("presign: %v %s", err, url)
	}
	if _, err := store.PresignURL(context.Background(), "a/b", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
