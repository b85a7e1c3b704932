// Package catalogdb persists the product catalog in Postgres.
package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"cantina/internal/catalog"
)

// PostgresProductStore implements catalog.ProductRepository over Postgres.
// Prices live in NUMERIC columns so no float ever touches money.
type PostgresProductStore struct {
	db *sql.DB
}

// NewPostgresProductStore constructs a product store backed by Postgres.
func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

// NewPostgresProductStoreWithSchema initializes the schema then returns the
// store.
func NewPostgresProductStoreWithSchema(ctx context.Context, db *sql.DB) (*PostgresProductStore, error) {
	s := NewPostgresProductStore(db)
	if err := s.InitSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// InitSchema creates the products table if it does not exist.
func (s *PostgresProductStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(10,2) NOT NULL,
			category_id BIGINT NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			size TEXT NOT NULL DEFAULT '',
			ingredients JSONB NOT NULL DEFAULT '[]',
			calories INT NOT NULL DEFAULT 0
		)
	`)
	return err
}

const productColumns = `id, name, description, price, category_id, available, size, ingredients, calories`

func scanProduct(row interface{ Scan(...any) error }) (catalog.Product, error) {
	var (
		p           catalog.Product
		price       string
		size        string
		ingredients []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.CategoryID, &p.Available, &size, &ingredients, &p.Calories); err != nil {
		return catalog.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	p.Size = catalog.ProductSize(size)
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &p.Ingredients); err != nil {
			return catalog.Product{}, fmt.Errorf("decode ingredients: %w", err)
		}
	}
	return p, nil
}

func (s *PostgresProductStore) query(ctx context.Context, where string, args ...any) ([]catalog.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresProductStore) All(ctx context.Context) ([]catalog.Product, error) {
	return s.query(ctx, "")
}

func (s *PostgresProductStore) ByID(ctx context.Context, id int64) (catalog.Product, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, err
	}
	return p, true, nil
}

func (s *PostgresProductStore) ByCategory(ctx context.Context, categoryID int64) ([]catalog.Product, error) {
	return s.query(ctx, "category_id = $1", categoryID)
}

func (s *PostgresProductStore) Available(ctx context.Context) ([]catalog.Product, error) {
	return s.query(ctx, "available")
}

func (s *PostgresProductStore) SearchByName(ctx context.Context, query string) ([]catalog.Product, error) {
	return s.query(ctx, "name ILIKE '%' || $1 || '%'", query)
}

func (s *PostgresProductStore) Add(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	ingredients, err := marshalIngredients(p.Ingredients)
	if err != nil {
		return catalog.Product{}, err
	}
	if p.ID == 0 {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO products (name, description, price, category_id, available, size, ingredients, calories)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			p.Name, p.Description, p.Price.StringFixed(2), p.CategoryID, p.Available, string(p.Size), ingredients, p.Calories)
		if err := row.Scan(&p.ID); err != nil {
			return catalog.Product{}, err
		}
		return p, nil
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, category_id, available, size, ingredients, calories)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.CategoryID, p.Available, string(p.Size), ingredients, p.Calories)
	if err != nil {
		return catalog.Product{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return catalog.Product{}, err
	}
	if affected == 0 {
		return catalog.Product{}, catalog.ErrDuplicateID
	}
	return p, nil
}

func (s *PostgresProductStore) Update(ctx context.Context, p catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ingredients, err := marshalIngredients(p.Ingredients)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category_id = $5, available = $6, size = $7, ingredients = $8, calories = $9
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.CategoryID, p.Available, string(p.Size), ingredients, p.Calories)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (s *PostgresProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func marshalIngredients(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode ingredients: %w", err)
	}
	return string(raw), nil
}

// PostgresCategoryStore implements catalog.CategoryRepository over Postgres.
type PostgresCategoryStore struct {
	db *sql.DB
}

// NewPostgresCategoryStore constructs a category store backed by Postgres.
func NewPostgresCategoryStore(db *sql.DB) *PostgresCategoryStore {
	return &PostgresCategoryStore{db: db}
}

// NewPostgresCategoryStoreWithSchema initializes the schema then returns the
// store.
func NewPostgresCategoryStoreWithSchema(ctx context.Context, db *sql.DB) (*PostgresCategoryStore, error) {
	s := NewPostgresCategoryStore(db)
	if err := s.InitSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// InitSchema creates the categories table if it does not exist.
func (s *PostgresCategoryStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)
	`)
	return err
}

const categoryColumns = `id, name, description, kind, active`

func scanCategory(row interface{ Scan(...any) error }) (catalog.Category, error) {
	var (
		c    catalog.Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &kind, &c.Active); err != nil {
		return catalog.Category{}, err
	}
	c.Kind = catalog.CategoryKind(kind)
	return c, nil
}

func (s *PostgresCategoryStore) query(ctx context.Context, where string, args ...any) ([]catalog.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCategoryStore) All(ctx context.Context) ([]catalog.Category, error) {
	return s.query(ctx, "")
}

func (s *PostgresCategoryStore) ByID(ctx context.Context, id int64) (catalog.Category, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return catalog.Category{}, false, nil
	}
	if err != nil {
		return catalog.Category{}, false, err
	}
	return c, true, nil
}

func (s *PostgresCategoryStore) ByKind(ctx context.Context, kind catalog.CategoryKind) ([]catalog.Category, error) {
	return s.query(ctx, "kind = $1", string(kind))
}

func (s *PostgresCategoryStore) Active(ctx context.Context) ([]catalog.Category, error) {
	return s.query(ctx, "active")
}

func (s *PostgresCategoryStore) Add(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	if c.ID == 0 {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO categories (name, description, kind, active)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			c.Name, c.Description, string(c.Kind), c.Active)
		if err := row.Scan(&c.ID); err != nil {
			return catalog.Category{}, err
		}
		return c, nil
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, kind, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.Name, c.Description, string(c.Kind), c.Active)
	if err != nil {
		return catalog.Category{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return catalog.Category{}, err
	}
	if affected == 0 {
		return catalog.Category{}, catalog.ErrDuplicateID
	}
	return c, nil
}

func (s *PostgresCategoryStore) Update(ctx context.Context, c catalog.Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, kind = $4, active = $5
		WHERE id = $1`,
		c.ID, c.Name, c.Description, string(c.Kind), c.Active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

func (s *PostgresCategoryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}
