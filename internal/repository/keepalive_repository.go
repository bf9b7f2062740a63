package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/natsort"
)

// KeepaliveRepository manages WireGuard PersistentKeepalive settings
type KeepaliveRepository interface {
	Save(ctx context.Context, keepalive domain.WireguardKeepalive) error
	FindAll(ctx context.Context) ([]domain.WireguardKeepalive, error)
	Delete(ctx context.Context, source, target string) error
}

type keepaliveRepositoryImpl struct {
	db DBTX
}

// NewKeepaliveRepository creates a new keepalive repository
func NewKeepaliveRepository(db DBTX) KeepaliveRepository {
	return &keepaliveRepositoryImpl{db: db}
}

// Save creates or updates the keepalive from source to target
func (r *keepaliveRepositoryImpl) Save(ctx context.Context, k domain.WireguardKeepalive) error {
	if k.IntervalSec <= 0 {
		return fmt.Errorf("keepalive interval %d: %w", k.IntervalSec, ErrInvalidEntity)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wireguard_keepalives (source_machine, target_machine, interval_sec) VALUES (?, ?, ?)
		ON CONFLICT(source_machine, target_machine) DO UPDATE SET interval_sec = excluded.interval_sec`,
		k.SourceMachine, k.TargetMachine, k.IntervalSec)
	if err != nil {
		return fmt.Errorf("failed to save keepalive %s -> %s: %w", k.SourceMachine, k.TargetMachine, err)
	}
	return nil
}

// FindAll retrieves every keepalive ordered by source and target
func (r *keepaliveRepositoryImpl) FindAll(ctx context.Context) ([]domain.WireguardKeepalive, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT source_machine, target_machine, interval_sec FROM wireguard_keepalives")
	if err != nil {
		return nil, fmt.Errorf("failed to list keepalives: %w", err)
	}
	defer rows.Close()

	var keepalives []domain.WireguardKeepalive
	for rows.Next() {
		var k domain.WireguardKeepalive
		if err := rows.Scan(&k.SourceMachine, &k.TargetMachine, &k.IntervalSec); err != nil {
			return nil, fmt.Errorf("failed to scan keepalive: %w", err)
		}
		keepalives = append(keepalives, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keepalives: %w", err)
	}

	slices.SortFunc(keepalives, func(a, b domain.WireguardKeepalive) int {
		if c := natsort.Compare(a.SourceMachine, b.SourceMachine); c != 0 {
			return c
		}
		return natsort.Compare(a.TargetMachine, b.TargetMachine)
	})
	return keepalives, nil
}

// Delete removes the keepalive from source to target
func (r *keepaliveRepositoryImpl) Delete(ctx context.Context, source, target string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM wireguard_keepalives WHERE source_machine = ? AND target_machine = ?", source, target)
	if err != nil {
		return fmt.Errorf("failed to delete keepalive: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("keepalive %s -> %s: %w", source, target, err)
	}
	return nil
}
