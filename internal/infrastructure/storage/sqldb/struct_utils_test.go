package sqldb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type AuditedFields struct {
	CreatedAt time.Time `db:"created_at"`
}

type productForm struct {
	AuditedFields
	Title  string   `db:"title"`
	Price  *float64 `db:"price"`
	UserID *int64   `db:"user_id"`
	Notes  string   `db:"-"`
	hidden string
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	price := 9.5
	form := productForm{
		AuditedFields: AuditedFields{CreatedAt: now},
		Title:         "Lamp",
		Price:         &price,
		Notes:         "ignored",
		hidden:        "ignored",
	}

	m := StructToMap(&form)

	assert.Equal(t, map[string]any{
		"created_at": now,
		"title":      "Lamp",
		"price":      9.5,
		"user_id":    nil,
	}, m)
}

func TestStructToMap_NotAStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*productForm)(nil)))
}
