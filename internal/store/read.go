package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/moa/internal/ir"
)

// ErrCatalogNotFound is returned when a name or hash matches no catalog.
var ErrCatalogNotFound = errors.New("catalog not found")

// CatalogInfo describes one named catalog.
type CatalogInfo struct {
	Name          string `json:"name"`
	Hash          string `json:"hash"`
	IRVersion     string `json:"ir_version"`
	EngineVersion string `json:"engine_version"`
}

// Resolve maps a catalog name, or a stored hash, to its hash.
// Names take precedence over hashes.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash FROM catalog_names WHERE name = ?`, ref).Scan(&hash)
	if err == nil {
		return hash, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT hash FROM catalogs WHERE hash = ?`, ref).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrCatalogNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return hash, nil
}

// ReadCatalog loads a catalog by name or hash.
// Entities come back in declaration order.
func (s *Store) ReadCatalog(ctx context.Context, ref string) (*ir.Catalog, error) {
	hash, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	c := &ir.Catalog{}
	if c.Categories, err = s.readCategories(ctx, hash); err != nil {
		return nil, err
	}
	if c.Choices, err = s.readChoices(ctx, hash); err != nil {
		return nil, err
	}
	if c.Options, err = s.readOptions(ctx, hash); err != nil {
		return nil, err
	}
	if c.Filters, err = s.readFilters(ctx, hash); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCatalogs returns every named catalog ordered by name.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListCatalogs(ctx context.Context) ([]CatalogInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.name, n.hash, c.ir_version, c.engine_version
		FROM catalog_names n
		JOIN catalogs c ON c.hash = n.hash
		ORDER BY n.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalogs: %w", err)
	}
	defer rows.Close()

	infos := []CatalogInfo{}
	for rows.Next() {
		var info CatalogInfo
		if err := rows.Scan(&info.Name, &info.Hash, &info.IRVersion, &info.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalogs: %w", err)
	}
	return infos, nil
}

// NamesFor returns the names currently pointing at hash, sorted.
func (s *Store) NamesFor(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM catalog_names
		WHERE hash = ?
		ORDER BY name COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) readCategories(ctx context.Context, hash string) ([]ir.CategorySpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, gui_name, choices
		FROM categories
		WHERE catalog_hash = ?
		ORDER BY position ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []ir.CategorySpec
	for rows.Next() {
		var spec ir.CategorySpec
		var choices string
		if err := rows.Scan(&spec.Number, &spec.Name, &spec.GUIName, &choices); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if spec.Choices, err = unmarshalNames(choices); err != nil {
			return nil, fmt.Errorf("category %q: %w", spec.Name, err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (s *Store) readChoices(ctx context.Context, hash string) ([]ir.ChoiceSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, gui_name, options
		FROM choices
		WHERE catalog_hash = ?
		ORDER BY position ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query choices: %w", err)
	}
	defer rows.Close()

	var out []ir.ChoiceSpec
	for rows.Next() {
		var spec ir.ChoiceSpec
		var options string
		if err := rows.Scan(&spec.Number, &spec.Name, &spec.GUIName, &options); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		if spec.Options, err = unmarshalNames(options); err != nil {
			return nil, fmt.Errorf("choice %q: %w", spec.Name, err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate choices: %w", err)
	}
	return out, nil
}

func (s *Store) readOptions(ctx context.Context, hash string) ([]ir.OptionSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, gui_name, limits
		FROM options
		WHERE catalog_hash = ?
		ORDER BY position ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	var out []ir.OptionSpec
	for rows.Next() {
		var spec ir.OptionSpec
		var limits string
		if err := rows.Scan(&spec.Number, &spec.Name, &spec.GUIName, &limits); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if spec.Limits, err = unmarshalLimits(limits); err != nil {
			return nil, fmt.Errorf("option %q: %w", spec.Name, err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return out, nil
}

func (s *Store) readFilters(ctx context.Context, hash string) ([]ir.FilterSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, gui_name, min, max, step, options
		FROM filters
		WHERE catalog_hash = ?
		ORDER BY position ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer rows.Close()

	var out []ir.FilterSpec
	for rows.Next() {
		var spec ir.FilterSpec
		var options string
		if err := rows.Scan(&spec.Number, &spec.Name, &spec.GUIName, &spec.Min, &spec.Max, &spec.Step, &options); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		if spec.Options, err = unmarshalNames(options); err != nil {
			return nil, fmt.Errorf("filter %q: %w", spec.Name, err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filters: %w", err)
	}
	return out, nil
}
