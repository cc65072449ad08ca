package infra

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a pgtype.Numeric (from a numeric(12,2) money
// column) to a decimal. Returns an error if the value is NULL, NaN or infinite.
func NumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("numeric value is not finite")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// NumericToFloat64 converts a non-NULL numeric to float64.
func NumericToFloat64(n pgtype.Numeric) (float64, error) {
	d, err := NumericToDecimal(n)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// NullableNumericToFloat64 maps NULL to nil.
func NullableNumericToFloat64(n pgtype.Numeric) (*float64, error) {
	if !n.Valid {
		return nil, nil
	}
	v, err := NumericToFloat64(n)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DecimalToNumeric converts a decimal to pgtype.Numeric for writing.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

// Float64ToNumeric rounds v to places decimals and converts it for writing.
func Float64ToNumeric(v float64, places int32) pgtype.Numeric {
	return DecimalToNumeric(decimal.NewFromFloat(v).Round(places))
}

// NullableFloat64ToNumeric maps nil to NULL.
func NullableFloat64ToNumeric(v *float64, places int32) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return Float64ToNumeric(*v, places)
}
