package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const (
	seenCollection  = "seen_listings"
	markSeenRetries = 2
)

// FirestoreStore keeps seen listings in a Firestore collection so several
// deployments can share one identity set.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (c *FirestoreStore) Close() error {
	return c.client.Close()
}

// seenDocID derives a stable document ID from the dedup key. Source IDs may
// contain characters Firestore rejects in document paths.
func seenDocID(source models.Source, id string) string {
	hash := sha256.Sum256([]byte(models.ListingKey(source, id)))
	return hex.EncodeToString(hash[:])
}

// LoadAll reads the whole seen collection.
func (c *FirestoreStore) LoadAll(ctx context.Context) (map[string]models.SeenRecord, error) {
	iter := c.client.Collection(seenCollection).Documents(ctx)
	defer iter.Stop()

	seen := make(map[string]models.SeenRecord)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate seen listings: %w", err)
		}
		var rec models.SeenRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("malformed seen record %s: %w", doc.Ref.ID, err)
		}
		if err := checkSeenRecord(doc.Ref.ID, rec); err != nil {
			return nil, err
		}
		seen[models.ListingKey(rec.Source, rec.ID)] = rec
	}
	return seen, nil
}

// checkSeenRecord rejects a decoded record that cannot be matched against a
// listing. Skipping it would announce that listing again.
func checkSeenRecord(docID string, rec models.SeenRecord) error {
	if rec.Source == "" || rec.ID == "" {
		return fmt.Errorf("malformed seen record %s: missing source or id", docID)
	}
	if want := seenDocID(rec.Source, rec.ID); docID != want {
		return fmt.Errorf("malformed seen record %s: stored under the wrong id for %s", docID, models.ListingKey(rec.Source, rec.ID))
	}
	return nil
}

// Contains reports whether source:id has been seen.
func (c *FirestoreStore) Contains(ctx context.Context, source models.Source, id string) (bool, error) {
	doc, err := c.client.Collection(seenCollection).Doc(seenDocID(source, id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get seen listing %s:%s: %w", source, id, err)
	}
	return doc.Exists(), nil
}

// MarkSeen creates the record. Create fails if the document already exists,
// which is the idempotent case and is not an error.
// Unavailable and DeadlineExceeded are retried.
func (c *FirestoreStore) MarkSeen(ctx context.Context, source models.Source, id string, ts time.Time) error {
	docRef := c.client.Collection(seenCollection).Doc(seenDocID(source, id))
	record := models.SeenRecord{Source: source, ID: id, FirstSeen: ts.UTC()}
	err := util.RetryWithBackoff(ctx, markSeenRetries, func(attempt int) error {
		_, err := docRef.Create(ctx, record)
		switch status.Code(err) {
		case codes.OK, codes.AlreadyExists:
			return nil
		case codes.Unavailable, codes.DeadlineExceeded:
			slog.Warn("Firestore write failed, retrying", "source", source, "id", id, "attempt", attempt+1, "error", err)
			return err
		default:
			return util.Permanent(err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s:%s seen: %w", source, id, err)
	}
	return nil
}
