package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"targetsync/internal/catalog"
)

// ErrNotFound is returned by Delete when no target has the relationship id.
var ErrNotFound = errors.New("target not found")

const selectColumns = `relationship_id, version_stamp, target_name, target_element_id,
	target_element_type, configuration, metadata_source, permitted_synchronization`

// Source is a catalog.TargetSource backed by a SQLite targets table. It
// also carries the admin operations used by the targets CLI.
type Source struct {
	DB *sql.DB
}

// NewSource returns a source reading from db.
func NewSource(db *sql.DB) *Source {
	return &Source{DB: db}
}

// List returns one page of targets ordered by relationship id.
func (s *Source) List(ctx context.Context, offset, pageSize int) ([]catalog.TargetDescriptor, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM targets ORDER BY relationship_id LIMIT ? OFFSET ?`,
		pageSize, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []catalog.TargetDescriptor
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// All returns every stored target.
func (s *Source) All(ctx context.Context) ([]catalog.TargetDescriptor, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+selectColumns+` FROM targets ORDER BY relationship_id`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []catalog.TargetDescriptor
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Upsert inserts or replaces a target. Every write mints a fresh version
// stamp so the next sweep treats the target as changed. The stored
// descriptor is returned.
func (s *Source) Upsert(ctx context.Context, t catalog.TargetDescriptor) (catalog.TargetDescriptor, error) {
	if t.RelationshipID == "" {
		return t, errors.New("relationship id is required")
	}
	if !t.PermittedSynchronization.Valid() {
		return t, fmt.Errorf("unknown permitted synchronization %q", t.PermittedSynchronization)
	}

	cfg := t.ConfigurationProperties
	if cfg == nil {
		cfg = map[string]any{}
	}
	props, err := json.Marshal(cfg)
	if err != nil {
		return t, fmt.Errorf("marshal configuration: %w", err)
	}

	t.VersionStamp = uuid.NewString()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO targets (`+selectColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (relationship_id) DO UPDATE SET
			version_stamp = excluded.version_stamp,
			target_name = excluded.target_name,
			target_element_id = excluded.target_element_id,
			target_element_type = excluded.target_element_type,
			configuration = excluded.configuration,
			metadata_source = excluded.metadata_source,
			permitted_synchronization = excluded.permitted_synchronization,
			updated_at = CURRENT_TIMESTAMP`,
		t.RelationshipID, t.VersionStamp, t.TargetName, t.TargetElementID,
		t.TargetElementType, string(props), t.MetadataSourceQualifiedName, string(t.PermittedSynchronization),
	)
	if err != nil {
		return t, fmt.Errorf("upsert target: %w", err)
	}
	return t, nil
}

// Delete removes the target with the given relationship id.
func (s *Source) Delete(ctx context.Context, relationshipID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM targets WHERE relationship_id = ?`, relationshipID)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("target %q: %w", relationshipID, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTarget(s scanner) (catalog.TargetDescriptor, error) {
	var t catalog.TargetDescriptor
	var propsJSON, sync string
	if err := s.Scan(&t.RelationshipID, &t.VersionStamp, &t.TargetName, &t.TargetElementID,
		&t.TargetElementType, &propsJSON, &t.MetadataSourceQualifiedName, &sync); err != nil {
		return t, fmt.Errorf("scan target: %w", err)
	}
	t.PermittedSynchronization = catalog.PermittedSynchronization(sync)
	if err := json.Unmarshal([]byte(propsJSON), &t.ConfigurationProperties); err != nil {
		return t, fmt.Errorf("unmarshal configuration of %s: %w", t.RelationshipID, err)
	}
	if len(t.ConfigurationProperties) == 0 {
		t.ConfigurationProperties = nil
	}
	return t, nil
}
