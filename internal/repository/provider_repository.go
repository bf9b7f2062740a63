package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jbweber/homelab/infrabase/internal/domain"
)

// ProviderRepository manages hosting providers
type ProviderRepository interface {
	Save(ctx context.Context, provider domain.Provider) (domain.Provider, error)
	FindByID(ctx context.Context, id int64) (domain.Provider, error)
	FindAll(ctx context.Context) ([]domain.Provider, error)
}

type providerRepositoryImpl struct {
	db DBTX
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db DBTX) ProviderRepository {
	return &providerRepositoryImpl{db: db}
}

// Save creates a provider when ID is zero and updates it otherwise
func (r *providerRepositoryImpl) Save(ctx context.Context, p domain.Provider) (domain.Provider, error) {
	if p.Name == "" {
		return domain.Provider{}, fmt.Errorf("provider without name: %w", ErrInvalidEntity)
	}

	if p.ID == 0 {
		result, err := r.db.ExecContext(ctx, "INSERT INTO providers (name, email) VALUES (?, ?)", p.Name, p.Email)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.Provider{}, fmt.Errorf("provider %q: %w", p.Name, ErrDuplicate)
			}
			return domain.Provider{}, fmt.Errorf("failed to create provider: %w", err)
		}
		if p.ID, err = result.LastInsertId(); err != nil {
			return domain.Provider{}, fmt.Errorf("failed to get provider ID: %w", err)
		}
		return p, nil
	}

	result, err := r.db.ExecContext(ctx, "UPDATE providers SET name = ?, email = ? WHERE id = ?", p.Name, p.Email, p.ID)
	if err != nil {
		return domain.Provider{}, fmt.Errorf("failed to update provider: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return domain.Provider{}, fmt.Errorf("provider %d: %w", p.ID, err)
	}
	return p, nil
}

// FindByID retrieves a provider by id
func (r *providerRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Provider, error) {
	var p domain.Provider
	err := r.db.QueryRowContext(ctx, "SELECT id, name, email FROM providers WHERE id = ?", id).Scan(&p.ID, &p.Name, &p.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Provider{}, fmt.Errorf("provider %d: %w", id, ErrNotFound)
		}
		return domain.Provider{}, fmt.Errorf("failed to find provider: %w", err)
	}
	return p, nil
}

// FindAll retrieves all providers ordered by id
func (r *providerRepositoryImpl) FindAll(ctx context.Context) ([]domain.Provider, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, email FROM providers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		var p domain.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// OwnerRepository manages machine owners
type OwnerRepository interface {
	Ensure(ctx context.Context, owner string) error
	FindAll(ctx context.Context) ([]string, error)
}

type ownerRepositoryImpl struct {
	db DBTX
}

// NewOwnerRepository creates a new owner repository
func NewOwnerRepository(db DBTX) OwnerRepository {
	return &ownerRepositoryImpl{db: db}
}

// Ensure creates the owner if it does not exist yet
func (r *ownerRepositoryImpl) Ensure(ctx context.Context, owner string) error {
	if owner == "" {
		return fmt.Errorf("empty owner: %w", ErrInvalidEntity)
	}
	if _, err := r.db.ExecContext(ctx, "INSERT OR IGNORE INTO owners (owner) VALUES (?)", owner); err != nil {
		return fmt.Errorf("failed to ensure owner: %w", err)
	}
	return nil
}

// FindAll retrieves all owners sorted by name
func (r *ownerRepositoryImpl) FindAll(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT owner FROM owners ORDER BY owner")
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}
