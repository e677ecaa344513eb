package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/hookgate/pkg/pg"
)

// ProviderRepo manages provider configurations.
type ProviderRepo struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) *ProviderRepo {
	return &ProviderRepo{pool: pool}
}

const providerColumns = "id, name, secret_key, forwarding_url, is_active, created_at, updated_at"

func scanProvider(row pgx.Row) (Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.SecretKey, &p.ForwardingURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProviderParams carries the fields an operator supplies.
type CreateProviderParams struct {
	Name          string
	SecretKey     string
	ForwardingURL string
}

// Create inserts a new active provider. Returns ErrProviderExists when the
// name is taken.
func (r *ProviderRepo) Create(ctx context.Context, arg CreateProviderParams) (Provider, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO providers (id, name, secret_key, forwarding_url, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING `+providerColumns,
		uuid.New(), arg.Name, arg.SecretKey, arg.ForwardingURL)

	p, err := scanProvider(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Provider{}, ErrProviderExists
		}
		return Provider{}, fmt.Errorf("create provider: %w", err)
	}
	return p, nil
}

// GetByName fetches a provider by its unique name.
func (r *ProviderRepo) GetByName(ctx context.Context, name string) (Provider, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE name = $1`, name)
	p, err := scanProvider(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, fmt.Errorf("get provider by name: %w", err)
	}
	return p, nil
}

// GetByID fetches a provider by id.
func (r *ProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (Provider, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
	p, err := scanProvider(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, fmt.Errorf("get provider by id: %w", err)
	}
	return p, nil
}

// List returns all providers ordered by creation time.
func (r *ProviderRepo) List(ctx context.Context) ([]Provider, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// UpdateProviderParams carries the mutable fields; nil means "leave as is".
// Name is immutable after creation.
type UpdateProviderParams struct {
	SecretKey     *string
	ForwardingURL *string
	IsActive      *bool
}

// Update applies the non-nil fields to the named provider.
func (r *ProviderRepo) Update(ctx context.Context, name string, arg UpdateProviderParams) (Provider, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE providers
		SET secret_key     = COALESCE($2, secret_key),
		    forwarding_url = COALESCE($3, forwarding_url),
		    is_active      = COALESCE($4, is_active),
		    updated_at     = now()
		WHERE name = $1
		RETURNING `+providerColumns,
		name, arg.SecretKey, arg.ForwardingURL, arg.IsActive)

	p, err := scanProvider(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, fmt.Errorf("update provider: %w", err)
	}
	return p, nil
}

// Delete removes the named provider. The RESTRICT foreign key on
// webhook_events refuses deletion while audit rows reference it; that
// surfaces as ErrProviderInUse.
func (r *ProviderRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM providers WHERE name = $1`, name)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return ErrProviderInUse
		}
		return fmt.Errorf("delete provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}
