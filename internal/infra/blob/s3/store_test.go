package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"staytrack/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMock()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	key := "owners/o1/students/s1/profile"
	info, err := store.Put(ctx, key, strings.NewReader("jpeg-bytes"), core.PutOptions{ContentType: "image/jpeg", Metadata: map[string]string{"student": "s1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("jpeg-bytes")) || info.ContentType != "image/jpeg" {
		t.Fatalf("unexpected info %+v", info)
	}

	if _, err := store.Put(ctx, key, strings.NewReader("newer"), core.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "newer" || got.ContentType != "image/png" {
		t.Fatalf("expected replaced object, got %q %+v", body, got)
	}

	list, err := store.List(ctx, "owners/o1/")
	if err != nil || len(list) != 1 || list[0].Key != key {
		t.Fatalf("list: %v %+v", err, list)
	}

	url, err := store.PresignURL(ctx, key, core.SignedURLOptions{})
	if err != nil || !strings.Contains(url, "mock-bucket") {
		t.Fatalf("presign: %v %s", err, url)
	}
	if _, err := store.PresignURL(ctx, key, core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}

	deleted, err := store.Delete(ctx, key)
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, key)
	if err != nil || deleted {
		t.Fatalf("second delete should report missing: %v %v", deleted, err)
	}
	if _, err := store.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on head, got %v", err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on get, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDecodeChunked(t *testing.T) {
	in := []byte("5\r\nhello\r\n6;chunk-signature=abc\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	if got := string(decodeChunked(in)); got != "hello world" {
		t.Fatalf("unexpected decode %q", got)
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	if _, err := NewMock().Put(context.Background(), "../escape", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key")
	}
}
