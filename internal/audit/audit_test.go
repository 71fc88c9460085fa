package audit

import (
	"context"
	"testing"

	"github.com/blog-top/blog_top/internal/middleware"
)

func TestLogStampsRequestID(t *testing.T) {
	rec := NewInMemory()
	ctx := middleware.WithRequestID(context.Background(), "req-42")

	Log(ctx, rec, nil, "user-1", "user_registered", map[string]string{"email": "a@example.com"})

	entries, err := rec.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Detail["request_id"] != "req-42" {
		t.Fatalf("expected request id on the entry, got %v", entries[0].Detail)
	}
	if entries[0].Detail["email"] != "a@example.com" {
		t.Fatal("existing detail must survive enrichment")
	}
}

func TestLogWithoutRequestIDLeavesDetailUntouched(t *testing.T) {
	rec := NewInMemory()
	detail := map[string]string{"email": "a@example.com"}

	Log(context.Background(), rec, nil, "user-1", "user_registered", detail)

	entries, err := rec.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, ok := entries[0].Detail["request_id"]; ok {
		t.Fatal("no request id should be stamped outside a request")
	}
}
