package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Blob is a stored upload. ExpiresAt is set on fresh uploads and cleared
// once the blob is referenced by a message, so abandoned uploads get
// cleaned up but attached files stay.
type Blob struct {
	ID           string
	Kind         string
	UploadedBy   string
	StoragePath  string
	MimeType     string
	SizeBytes    int64
	OriginalName string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

type BlobRepository struct {
	db *DB
}

func NewBlobRepository(db *DB) *BlobRepository {
	return &BlobRepository{db: db}
}

func (r *BlobRepository) Create(ctx context.Context, blob *Blob) error {
	var expiresAt any
	if blob.ExpiresAt != nil {
		expiresAt = blob.ExpiresAt.UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blobs (id, kind, uploaded_by, storage_path, mime_type, size_bytes, original_name, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		blob.ID, blob.Kind, blob.UploadedBy, blob.StoragePath, blob.MimeType, blob.SizeBytes, blob.OriginalName, expiresAt, blob.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

func (r *BlobRepository) GetByID(ctx context.Context, id string) (*Blob, error) {
	var blob Blob
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, uploaded_by, storage_path, mime_type, size_bytes, original_name, expires_at, created_at
		 FROM blobs WHERE id = ?`, id,
	).Scan(&blob.ID, &blob.Kind, &blob.UploadedBy, &blob.StoragePath, &blob.MimeType, &blob.SizeBytes, &blob.OriginalName, &expiresAt, &blob.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying blob: %w", err)
	}

	blob.ExpiresAt = nullTimeToPtr(expiresAt)
	return &blob, nil
}

// MarkAttached clears expiry on the given blobs so cleanup leaves them alone.
func (r *BlobRepository) MarkAttached(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE blobs SET expires_at = NULL WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return fmt.Errorf("marking blobs attached: %w", err)
	}
	return nil
}

// DeleteExpired removes blob rows past their expiry and returns the storage
// paths of the deleted rows so the files can be removed too.
func (r *BlobRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, storage_path FROM blobs WHERE expires_at IS NOT NULL AND expires_at < ?`, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying expired blobs: %w", err)
	}
	defer rows.Close()

	var ids []any
	var paths []string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, fmt.Errorf("scanning expired blob: %w", err)
		}
		ids = append(ids, id)
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expired blobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE id IN (`+placeholders+`)`, ids...); err != nil {
		return nil, fmt.Errorf("deleting expired blobs: %w", err)
	}
	return paths, nil
}
