package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

func TestSaveAndOpenNestedKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := storage.Save(ctx, "claim-1/00_bill.pdf", strings.NewReader("bill body")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rc, err := storage.Open(ctx, "claim-1/00_bill.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if string(body) != "bill body" {
		t.Fatalf("body = %q", string(body))
	}
}

func TestOpenMissingKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = storage.Open(context.Background(), "claim-1/missing.pdf")
	if !domain.IsKind(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		err := storage.Save(context.Background(), key, strings.NewReader("x"))
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q) error = %v, want invalid input", key, err)
		}
	}
}
