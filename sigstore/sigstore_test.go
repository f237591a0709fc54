package sigstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hazyhaar/signdesk/dbopen"
	_ "modernc.org/sqlite"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	n := 0
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(db,
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("sig_%d", n)
		}),
		WithClock(func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Minute)
		}),
	)
}

func TestSaveAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id1 := s.Save(ctx, ModeDraw, "data:image/png;base64,AAAA", "")
	id2 := s.Save(ctx, ModeType, "data:image/png;base64,BBBB", "Jane Doe")

	got := s.List(ctx)
	if len(got) != 2 {
		t.Fatalf("List returned %d signatures, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != id2 || got[1].ID != id1 {
		t.Errorf("order = %s, %s; want %s, %s", got[0].ID, got[1].ID, id2, id1)
	}
	if got[0].Mode != ModeType || got[0].Name != "Jane Doe" {
		t.Errorf("signature = %+v", got[0])
	}
	if got[1].Payload != "data:image/png;base64,AAAA" {
		t.Errorf("payload = %q", got[1].Payload)
	}
}

func TestDelete_RemovesRow(t *testing.T) {
	// WHAT: After Delete, a fresh read sees nothing.
	// WHY: A deleted signature reappearing in the next session would leak a
	// signature its owner chose to destroy.
	s := newStore(t)
	ctx := context.Background()

	id := s.Save(ctx, ModeUpload, "data:image/jpeg;base64,CCCC", "")
	s.Delete(ctx, id)

	if got := s.List(ctx); len(got) != 0 {
		t.Errorf("List after delete returned %d signatures", len(got))
	}
	// Deleting again is harmless.
	s.Delete(ctx, id)
}

func TestSave_InvalidDropped(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Save(ctx, Mode("scan"), "data:image/png;base64,AAAA", "")
	s.Save(ctx, ModeDraw, "", "")
	if got := s.List(ctx); len(got) != 0 {
		t.Errorf("invalid signatures persisted: %d", len(got))
	}
}

func TestSignerName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if got := s.SignerName(ctx); got != "" {
		t.Errorf("initial name = %q, want empty", got)
	}
	s.SetSignerName(ctx, "Jane Doe")
	if got := s.SignerName(ctx); got != "Jane Doe" {
		t.Errorf("name = %q", got)
	}
	s.SetSignerName(ctx, "J. Doe")
	if got := s.SignerName(ctx); got != "J. Doe" {
		t.Errorf("name after update = %q", got)
	}
}

func TestDegradedStorage_SilentReads(t *testing.T) {
	// WHAT: With the backing tables gone, reads return empty results and
	// writes vanish without an error reaching the caller.
	db := dbopen.OpenMemory(t)
	s := New(db)
	ctx := context.Background()

	if id := s.Save(ctx, ModeDraw, "data:image/png;base64,AAAA", ""); id == "" {
		t.Error("Save on degraded storage must still return an id")
	}
	if got := s.List(ctx); got != nil {
		t.Errorf("List on degraded storage = %v, want nil", got)
	}
	if got := s.SignerName(ctx); got != "" {
		t.Errorf("SignerName on degraded storage = %q", got)
	}
	s.SetSignerName(ctx, "Jane Doe")
	s.Delete(ctx, "sig_x")
}
