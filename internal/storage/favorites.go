package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
)

// AddFavorite saves a listing. Saving it again keeps the first saved_on.
func (s *SQLiteStore) AddFavorite(ctx context.Context, l models.Listing, savedOn time.Time) error {
	payload, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode favorite %s: %w", l.Key(), err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO favorites (source, listing_id, listing_json, saved_on) VALUES (?, ?, ?, ?)
		 ON CONFLICT (source, listing_id) DO NOTHING`,
		string(l.Source), l.ID, string(payload), savedOn.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to add favorite %s: %w", l.Key(), err)
	}
	return nil
}

// RemoveFavorite deletes a saved listing. It returns ErrNotFound when the
// listing was not saved.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, source models.Source, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE source = ? AND listing_id = ?`, string(source), id)
	if err != nil {
		return fmt.Errorf("failed to remove favorite %s:%s: %w", source, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove favorite %s:%s: %w", source, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFavorites returns saved listings, most recently saved first.
func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]models.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT listing_json, saved_on FROM favorites ORDER BY saved_on DESC, source, listing_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favs []models.Favorite
	for rows.Next() {
		var payload, savedOn string
		if err := rows.Scan(&payload, &savedOn); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		var fav models.Favorite
		if err := json.Unmarshal([]byte(payload), &fav.Listing); err != nil {
			return nil, fmt.Errorf("failed to decode favorite: %w", err)
		}
		if fav.SavedOn, err = time.Parse(timeLayout, savedOn); err != nil {
			return nil, fmt.Errorf("invalid saved_on %q: %w", savedOn, err)
		}
		favs = append(favs, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}
	return favs, nil
}

// FavoriteKeys returns the dedup keys of every saved listing.
func (s *SQLiteStore) FavoriteKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, listing_id FROM favorites`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorite keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var source, id string
		if err := rows.Scan(&source, &id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite key: %w", err)
		}
		keys[models.ListingKey(models.Source(source), id)] = struct{}{}
	}
	return keys, rows.Err()
}
