package main

import (
	"context"
	"fmt"

	"adminnext/internal/domain/admin"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

// ProfileType is the kind of a user account.
type ProfileType string

const (
	ProfileAdmin    ProfileType = "ADMIN"
	ProfileCustomer ProfileType = "CUSTOMER"
	ProfileVendor   ProfileType = "VENDOR"
)

func (ProfileType) EnumValues() []string {
	return []string{string(ProfileAdmin), string(ProfileCustomer), string(ProfileVendor)}
}

// User is a shop account.
type User struct {
	ID          int64        `db:"id" admin:"pk;readonly"`
	Name        string       `db:"name" admin:"required"`
	Email       string       `db:"email" admin:"required"`
	ProfileType *ProfileType `db:"profile_type"`
	Products    []Product    `admin:"relation=products;remote=user_id"`
}

// Product is an item sold by a user.
type Product struct {
	ID     int64   `db:"id" admin:"pk;readonly"`
	Title  string  `db:"title" admin:"required"`
	Price  float64 `db:"price" admin:"required"`
	UserID int64   `db:"user_id" admin:"required;label=Owner"`
	User   *User   `admin:"relation=users;local=user_id"`
}

// UserForm holds the write rules of User beyond its column constraints.
type UserForm struct {
	Name        string `db:"name" validate:"required"`
	Email       string `db:"email" validate:"required,email"`
	ProfileType string `db:"profile_type" validate:"required,oneof=ADMIN CUSTOMER VENDOR"`
}

// demoSchema returns the DDL of the demo tables for the dialect.
func demoSchema(d sqldb.Dialect) []string {
	pk, text, num := "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "REAL"
	switch d.Name() {
	case sqldb.DialectPostgres:
		pk, num = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION"
	case sqldb.DialectMySQL:
		pk, text, num = "BIGINT AUTO_INCREMENT PRIMARY KEY", "VARCHAR(255)", "DOUBLE"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
	id %s,
	name %s NOT NULL,
	email %s NOT NULL UNIQUE,
	profile_type VARCHAR(20)
)`, pk, text, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
	id %s,
	title %s NOT NULL,
	price %s NOT NULL,
	user_id BIGINT NOT NULL REFERENCES users(id)
)`, pk, text, num),
		sqldb.AuditSchema(d),
	}
}

// bootstrap creates the demo tables when they are missing.
func bootstrap(ctx context.Context, db *sqldb.DB) error {
	for _, ddl := range demoSchema(db.Dialect()) {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// setupAdminRegistry describes the demo models and registers them with the admin.
func setupAdminRegistry() (*admin.Registry, error) {
	reg := admin.NewRegistry(nil)

	register := func(entity any, name, table string, opts ...admin.Option) error {
		def, err := metadata.Inspect(entity, name, table)
		if err != nil {
			return err
		}
		if name == "User" {
			def.Display = func(r metadata.Row) string {
				return fmt.Sprintf("%v (%v)", r["name"], r["email"])
			}
		}
		return reg.Register(def, opts...)
	}

	if err := register(User{}, "User", "users",
		admin.WithFilterFields("profile_type"),
		admin.WithSearchFields("name", "email"),
		admin.WithValidation(admin.NewStructValidator[UserForm]()),
	); err != nil {
		return nil, err
	}
	if err := register(Product{}, "Product", "products",
		admin.WithFilterFields("user_id"),
		admin.WithSearchFields("title"),
	); err != nil {
		return nil, err
	}

	reg.Freeze()
	return reg, nil
}
