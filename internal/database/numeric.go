package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a NUMERIC column to decimal.Decimal. NULL maps to zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	return NumericOr(n, decimal.Zero)
}

// NumericOr converts a NUMERIC column, using fallback for NULL or
// unreadable values.
func NumericOr(n pgtype.Numeric, fallback decimal.Decimal) decimal.Decimal {
	if !n.Valid {
		return fallback
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return fallback
	}
	s, ok := val.(string)
	if !ok {
		return fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return d
}

// DecimalToNumeric converts a money amount to a NUMERIC(12,2) parameter.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// Text wraps s as a nullable text parameter; empty strings become NULL.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
