package repository

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// decArg renders an optional decimal for a TEXT column, NULL when
// unset.
func decArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

// decFromNull parses a scanned TEXT decimal, nil on NULL or garbage.
func decFromNull(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func timeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timeFromNull(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

func intArg(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func intFromNull(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
