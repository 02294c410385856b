package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/trackport/tracking-engine/pkg/apperrors"
	"github.com/trackport/tracking-engine/pkg/database"
	"github.com/trackport/tracking-engine/pkg/models"
)

// FeatureRepository defines data access for the feature catalog and the
// per-company assignment set. Every mutation commits the assignment rows and
// the legacy mirror columns in one transaction; readers never observe the two
// representations diverged.
type FeatureRepository interface {
	ListFeatures(ctx context.Context) ([]models.Feature, error)
	GetBySlug(ctx context.Context, slug string) (*models.Feature, error)
	DefaultEnabledSlugs(ctx context.Context) ([]string, error)
	// MissingSlugs returns the subset of slugs with no catalog entry.
	MissingSlugs(ctx context.Context, slugs []string) ([]string, error)

	AssignedSlugs(ctx context.Context, companyID int64) ([]string, error)
	HasAssignment(ctx context.Context, companyID int64, slug string) (bool, error)

	EnableAssignments(ctx context.Context, companyID int64, slugs []string) error
	DisableAssignments(ctx context.Context, companyID int64, slugs []string) error
	SyncAssignments(ctx context.Context, companyID int64, slugs []string) error
	// ToggleAssignment flips membership for one slug and returns the new
	// state. Concurrent toggles on the same company serialize on a row lock.
	ToggleAssignment(ctx context.Context, companyID int64, slug string) (bool, error)
}

// featureRepository implements FeatureRepository using PostgreSQL.
type featureRepository struct {
	db *database.DB
}

// NewFeatureRepository creates a new feature repository.
func NewFeatureRepository(db *database.DB) FeatureRepository {
	return &featureRepository{db: db}
}

// ListFeatures returns all catalog entries in stable id order.
func (r *featureRepository) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	query := `
		SELECT id, name, slug, description, default_enabled, created_at, updated_at
		FROM company_features
		ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	defer rows.Close()

	var features []models.Feature
	for rows.Next() {
		var f models.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.Description, &f.DefaultEnabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// GetBySlug returns the catalog entry for the given slug.
func (r *featureRepository) GetBySlug(ctx context.Context, slug string) (*models.Feature, error) {
	query := `
		SELECT id, name, slug, description, default_enabled, created_at, updated_at
		FROM company_features
		WHERE slug = $1`

	var f models.Feature
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&f.ID, &f.Name, &f.Slug, &f.Description, &f.DefaultEnabled, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feature %s: %w", slug, err)
	}
	return &f, nil
}

// DefaultEnabledSlugs returns slugs seeded onto newly created companies.
func (r *featureRepository) DefaultEnabledSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT slug FROM company_features WHERE default_enabled ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query default-enabled features: %w", err)
	}
	defer rows.Close()
	return scanSlugs(rows)
}

// MissingSlugs returns the given slugs that do not exist in the catalog.
func (r *featureRepository) MissingSlugs(ctx context.Context, slugs []string) ([]string, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT slug FROM company_features WHERE slug = ANY($1)`, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to validate slugs: %w", err)
	}
	defer rows.Close()

	known, err := scanSlugs(rows)
	if err != nil {
		return nil, err
	}

	knownSet := make(map[string]bool, len(known))
	for _, s := range known {
		knownSet[s] = true
	}

	var missing []string
	for _, s := range slugs {
		if !knownSet[s] {
			missing = append(missing, s)
		}
	}
	return missing, nil
}

// AssignedSlugs returns the slugs currently assigned to the company.
func (r *featureRepository) AssignedSlugs(ctx context.Context, companyID int64) ([]string, error) {
	query := `
		SELECT f.slug
		FROM company_has_feature chf
		JOIN company_features f ON f.id = chf.company_feature_id
		WHERE chf.company_id = $1
		ORDER BY f.id ASC`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned slugs: %w", err)
	}
	defer rows.Close()
	return scanSlugs(rows)
}

// HasAssignment reports whether an assignment exists for (company, slug).
func (r *featureRepository) HasAssignment(ctx context.Context, companyID int64, slug string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM company_has_feature chf
			JOIN company_features f ON f.id = chf.company_feature_id
			WHERE chf.company_id = $1 AND f.slug = $2
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, companyID, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return exists, nil
}

// EnableAssignments adds assignments for the given slugs. Idempotent; slugs
// without a catalog entry are ignored.
func (r *featureRepository) EnableAssignments(ctx context.Context, companyID int64, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO company_has_feature (company_id, company_feature_id, created_at)
			SELECT $1, f.id, now()
			FROM company_features f
			WHERE f.slug = ANY($2)
			ON CONFLICT (company_id, company_feature_id) DO NOTHING`

		if _, err := tx.Exec(ctx, query, companyID, slugs); err != nil {
			return fmt.Errorf("failed to insert assignments: %w", err)
		}
		return recomputeLegacyColumns(ctx, tx, companyID)
	})
	if err != nil {
		return fmt.Errorf("failed to enable features: %w", err)
	}
	return nil
}

// DisableAssignments removes assignments for the given slugs. Idempotent.
func (r *featureRepository) DisableAssignments(ctx context.Context, companyID int64, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		query := `
			DELETE FROM company_has_feature chf
			USING company_features f
			WHERE chf.company_feature_id = f.id
			  AND chf.company_id = $1
			  AND f.slug = ANY($2)`

		if _, err := tx.Exec(ctx, query, companyID, slugs); err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		return recomputeLegacyColumns(ctx, tx, companyID)
	})
	if err != nil {
		return fmt.Errorf("failed to disable features: %w", err)
	}
	return nil
}

// SyncAssignments replaces the assignment set with exactly the given slugs.
// A full overwrite, not a merge; unknown slugs are dropped.
func (r *featureRepository) SyncAssignments(ctx context.Context, companyID int64, slugs []string) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		deleteQuery := `
			DELETE FROM company_has_feature chf
			USING company_features f
			WHERE chf.company_feature_id = f.id
			  AND chf.company_id = $1
			  AND f.slug <> ALL($2)`

		if _, err := tx.Exec(ctx, deleteQuery, companyID, slugs); err != nil {
			return fmt.Errorf("failed to remove stale assignments: %w", err)
		}

		if len(slugs) > 0 {
			insertQuery := `
				INSERT INTO company_has_feature (company_id, company_feature_id, created_at)
				SELECT $1, f.id, now()
				FROM company_features f
				WHERE f.slug = ANY($2)
				ON CONFLICT (company_id, company_feature_id) DO NOTHING`

			if _, err := tx.Exec(ctx, insertQuery, companyID, slugs); err != nil {
				return fmt.Errorf("failed to insert assignments: %w", err)
			}
		}
		return recomputeLegacyColumns(ctx, tx, companyID)
	})
	if err != nil {
		return fmt.Errorf("failed to sync features: %w", err)
	}
	return nil
}

// ToggleAssignment flips membership for one slug under a company row lock,
// so N concurrent toggles always land on initial XOR (N mod 2).
func (r *featureRepository) ToggleAssignment(ctx context.Context, companyID int64, slug string) (bool, error) {
	var enabled bool

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var lockedID int64
		err := tx.QueryRow(ctx, `SELECT id FROM companies WHERE id = $1 FOR UPDATE`, companyID).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to lock company: %w", err)
		}

		var featureID int64
		err = tx.QueryRow(ctx, `SELECT id FROM company_features WHERE slug = $1`, slug).Scan(&featureID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to look up feature: %w", err)
		}

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM company_has_feature WHERE company_id = $1 AND company_feature_id = $2)`,
			companyID, featureID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check assignment: %w", err)
		}

		if exists {
			_, err = tx.Exec(ctx,
				`DELETE FROM company_has_feature WHERE company_id = $1 AND company_feature_id = $2`,
				companyID, featureID)
		} else {
			_, err = tx.Exec(ctx,
				`INSERT INTO company_has_feature (company_id, company_feature_id, created_at) VALUES ($1, $2, now())`,
				companyID, featureID)
		}
		if err != nil {
			return fmt.Errorf("failed to flip assignment: %w", err)
		}

		enabled = !exists
		return recomputeLegacyColumns(ctx, tx, companyID)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, apperrors.ErrNotFound
		}
		return false, fmt.Errorf("failed to toggle feature: %w", err)
	}
	return enabled, nil
}

// recomputeLegacyColumns re-derives the mirror booleans from the assignment
// rows inside the caller's transaction. This is the only writer of the mirror
// columns; every assignment mutation above runs it before committing.
func recomputeLegacyColumns(ctx context.Context, tx pgx.Tx, companyID int64) error {
	query := `
		UPDATE companies SET
			enable_map = EXISTS (
				SELECT 1 FROM company_has_feature chf
				JOIN company_features f ON f.id = chf.company_feature_id
				WHERE chf.company_id = companies.id AND f.slug = $2),
			enable_documents = EXISTS (
				SELECT 1 FROM company_has_feature chf
				JOIN company_features f ON f.id = chf.company_feature_id
				WHERE chf.company_id = companies.id AND f.slug = $3),
			updated_at = now()
		WHERE id = $1`

	if _, err := tx.Exec(ctx, query, companyID, models.FeatureEnableMap, models.FeatureEnableDocuments); err != nil {
		return fmt.Errorf("failed to recompute legacy columns: %w", err)
	}
	return nil
}

func scanSlugs(rows pgx.Rows) ([]string, error) {
	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

// Ensure featureRepository implements FeatureRepository at compile time.
var _ FeatureRepository = (*featureRepository)(nil)
