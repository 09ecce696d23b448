package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medrep/promostock/internal/model"
)

// CreateCategory creates a new category.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?)`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at, deleted_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all non-deleted categories.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at, deleted_at FROM categories
		 WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory soft-deletes a category.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE categories SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// CreateSpecialty creates a new specialty.
func CreateSpecialty(ctx context.Context, db *sql.DB, name string) (*model.Specialty, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO specialties (name) VALUES (?)`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating specialty: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting specialty id: %w", err)
	}

	return &model.Specialty{ID: id, Name: name}, nil
}

// ListSpecialties returns all specialties.
func ListSpecialties(ctx context.Context, db *sql.DB) ([]model.Specialty, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM specialties ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing specialties: %w", err)
	}
	defer rows.Close()

	var specialties []model.Specialty
	for rows.Next() {
		var s model.Specialty
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning specialty: %w", err)
		}
		specialties = append(specialties, s)
	}
	return specialties, rows.Err()
}
