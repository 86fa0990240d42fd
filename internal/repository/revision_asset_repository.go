package repository

import (
	"context"

	"github.com/spec-kit/creative-board/internal/domain"
)

// RevisionAssetRepository persists asset metadata attached to revisions.
type RevisionAssetRepository interface {
	Create(ctx context.Context, asset *domain.RevisionAsset) error
	ListByRevisions(ctx context.Context, revisionIDs []string) (map[string][]domain.RevisionAsset, error)
}

type revisionAssetRepository struct {
	db DBTX
}

func (r *revisionAssetRepository) Create(ctx context.Context, asset *domain.RevisionAsset) error {
	const query = `
        INSERT INTO revision_assets (revision_id, position, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1, (SELECT COALESCE(MAX(position), 0) + 1 FROM revision_assets WHERE revision_id = $1), $2, $3, $4, $5)
        RETURNING id, position, created_at`
	return r.db.QueryRow(ctx, query,
		asset.RevisionID,
		asset.StorageKey,
		asset.FileName,
		asset.MimeType,
		asset.SizeBytes,
	).Scan(&asset.ID, &asset.Position, &asset.CreatedAt)
}

func (r *revisionAssetRepository) ListByRevisions(ctx context.Context, revisionIDs []string) (map[string][]domain.RevisionAsset, error) {
	result := make(map[string][]domain.RevisionAsset, len(revisionIDs))
	if len(revisionIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT id, revision_id, position, storage_key, file_name, mime_type, size_bytes, created_at
        FROM revision_assets WHERE revision_id = ANY($1::uuid[]) ORDER BY revision_id, position`
	rows, err := r.db.Query(ctx, query, revisionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var asset domain.RevisionAsset
		if err := rows.Scan(
			&asset.ID,
			&asset.RevisionID,
			&asset.Position,
			&asset.StorageKey,
			&asset.FileName,
			&asset.MimeType,
			&asset.SizeBytes,
			&asset.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[asset.RevisionID] = append(result[asset.RevisionID], asset)
	}
	return result, rows.Err()
}
