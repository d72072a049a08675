// Package testutil provides an in-memory SQLite shop schema for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

// ProfileType is the enumerated user kind.
type ProfileType string

func (ProfileType) EnumValues() []string { return []string{"ADMIN", "CUSTOMER", "VENDOR"} }

// User is a shop customer.
type User struct {
	ID          int64        `db:"id" admin:"pk;readonly"`
	Name        string       `db:"name" admin:"required"`
	Email       string       `db:"email" admin:"required"`
	ProfileType *ProfileType `db:"profile_type"`
	Products    []Product    `admin:"relation=products;remote=user_id"`
}

// Product belongs to a user.
type Product struct {
	ID     int64   `db:"id" admin:"pk;readonly"`
	Title  string  `db:"title" admin:"required"`
	Price  float64 `db:"price" admin:"required"`
	UserID int64   `db:"user_id" admin:"required"`
	User   *User   `admin:"relation=users;local=user_id"`
}

var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		profile_type TEXT
	)`,
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		price REAL NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id)
	)`,
}

// Shop bundles a database with the shop descriptors.
type Shop struct {
	DB       *sqldb.DB
	Meta     *metadata.Registry
	Users    *metadata.Table
	Products *metadata.Table
}

// NewShop opens a fresh in-memory database with the users and products tables.
func NewShop(t testing.TB) *Shop {
	t.Helper()
	ctx := context.Background()

	db, err := sqldb.Open(ctx, sqldb.DefaultConfig(sqldb.DialectSQLite, ":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range append(schema, sqldb.AuditSchema(db.Dialect())) {
		_, err = db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	users := metadata.MustInspect(User{}, "User", "users")
	users.Display = func(r metadata.Row) string {
		return fmt.Sprintf("%v (%v)", r["name"], r["email"])
	}
	products := metadata.MustInspect(Product{}, "Product", "products")

	meta := metadata.NewRegistry()
	require.NoError(t, meta.Register(users))
	require.NoError(t, meta.Register(products))

	return &Shop{DB: db, Meta: meta, Users: users, Products: products}
}

// AddUser inserts a user outside any session and returns its id.
func (s *Shop) AddUser(t testing.TB, name, email, profileType string) int64 {
	t.Helper()
	var pt any
	if profileType != "" {
		pt = profileType
	}
	res, err := s.DB.ExecContext(context.Background(),
		"INSERT INTO users (name, email, profile_type) VALUES (?, ?, ?)", name, email, pt)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// AddProduct inserts a product outside any session and returns its id.
func (s *Shop) AddProduct(t testing.TB, title string, price float64, userID int64) int64 {
	t.Helper()
	res, err := s.DB.ExecContext(context.Background(),
		"INSERT INTO products (title, price, user_id) VALUES (?, ?, ?)", title, price, userID)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// Count returns the number of rows in table.
func (s *Shop) Count(t testing.TB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
