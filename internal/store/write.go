package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/moa/internal/ir"
)

// WriteCatalog stores a catalog and points name at it. Returns the
// catalog's content hash.
//
// Writing a catalog whose hash is already stored only moves the name, so
// re-importing unchanged sources is idempotent. The whole write runs in one
// transaction.
func (s *Store) WriteCatalog(ctx context.Context, name string, c *ir.Catalog) (string, error) {
	if name == "" {
		return "", errors.New("write catalog: name is required")
	}
	hash, err := ir.CatalogHash(c)
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write catalog: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO catalogs (hash, ir_version, engine_version)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, ir.IRVersion, ir.EngineVersion)
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}
	if inserted > 0 {
		if err := writeEntities(ctx, tx, hash, c); err != nil {
			return "", fmt.Errorf("write catalog: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_names (name, hash, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM catalog_names))
		ON CONFLICT(name) DO UPDATE SET hash = excluded.hash, seq = excluded.seq
	`, name, hash)
	if err != nil {
		return "", fmt.Errorf("write catalog name: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write catalog: commit: %w", err)
	}
	return hash, nil
}

// writeEntities inserts the four mappings with their positions.
func writeEntities(ctx context.Context, tx *sql.Tx, hash string, c *ir.Catalog) error {
	for i, cat := range c.Categories {
		choices, err := marshalNames(cat.Choices)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (catalog_hash, position, number, name, gui_name, choices)
			VALUES (?, ?, ?, ?, ?, ?)
		`, hash, i, cat.Number, cat.Name, cat.GUIName, choices); err != nil {
			return fmt.Errorf("category %q: %w", cat.Name, err)
		}
	}

	for i, ch := range c.Choices {
		options, err := marshalNames(ch.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO choices (catalog_hash, position, number, name, gui_name, options)
			VALUES (?, ?, ?, ?, ?, ?)
		`, hash, i, ch.Number, ch.Name, ch.GUIName, options); err != nil {
			return fmt.Errorf("choice %q: %w", ch.Name, err)
		}
	}

	for i, o := range c.Options {
		limits, err := marshalLimits(o.Limits)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO options (catalog_hash, position, number, name, gui_name, limits)
			VALUES (?, ?, ?, ?, ?, ?)
		`, hash, i, o.Number, o.Name, o.GUIName, limits); err != nil {
			return fmt.Errorf("option %q: %w", o.Name, err)
		}
	}

	for i, f := range c.Filters {
		options, err := marshalNames(f.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO filters (catalog_hash, position, number, name, gui_name, min, max, step, options)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, hash, i, f.Number, f.Name, f.GUIName, f.Min, f.Max, f.Step, options); err != nil {
			return fmt.Errorf("filter %q: %w", f.Name, err)
		}
	}

	return nil
}
