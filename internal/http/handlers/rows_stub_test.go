package handlers

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowFunc adapts a scan function to pgx.Row. A nil rowFunc behaves like an
// empty result.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error {
	if f == nil {
		return pgx.ErrNoRows
	}
	return f(dest...)
}

// rowsStub fills in the pgx.Rows methods tests never exercise. Embed it and
// implement Next/Scan/Close/Err.
type rowsStub struct{}

func (rowsStub) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (rowsStub) Conn() *pgx.Conn { return nil }

func (rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (rowsStub) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (rowsStub) RawValues() [][]byte { return nil }
