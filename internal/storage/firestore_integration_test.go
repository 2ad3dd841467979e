//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Run with: FIRESTORE_EMULATOR_HOST=localhost:8081 go test -tags=integration ./internal/storage/
func TestFirestoreStore_MarkSeenIsIdempotent(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	store, err := NewFirestore(ctx, "property-scanner-test")
	if err != nil {
		t.Fatalf("NewFirestore() error = %v", err)
	}
	defer store.Close()

	id := time.Now().Format("20060102150405.000000000")
	for i := 0; i < 2; i++ {
		if err := store.MarkSeen(ctx, models.SourceOpenRent, id, time.Now()); err != nil {
			t.Fatalf("MarkSeen() attempt %d error = %v", i, err)
		}
	}

	ok, err := store.Contains(ctx, models.SourceOpenRent, id)
	if err != nil || !ok {
		t.Fatalf("Contains() = %v, %v", ok, err)
	}

	seen, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if _, ok := seen[models.ListingKey(models.SourceOpenRent, id)]; !ok {
		t.Error("LoadAll() missing the marked record")
	}
}

func TestFirestoreStore_LoadAllRejectsMalformedRecord(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	store, err := NewFirestore(ctx, "property-scanner-test")
	if err != nil {
		t.Fatalf("NewFirestore() error = %v", err)
	}
	defer store.Close()

	doc := store.client.Collection(seenCollection).Doc("malformed-" + time.Now().Format("150405.000000000"))
	if _, err := doc.Set(ctx, map[string]any{"firstSeen": time.Now()}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Cleanup(func() { doc.Delete(context.Background()) })

	if _, err := store.LoadAll(ctx); err == nil {
		t.Error("LoadAll() error = nil, want an error for a record without source or id")
	}
}
