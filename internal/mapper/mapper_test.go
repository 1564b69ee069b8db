package mapper

import (
	"testing"
	"time"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/schema"
	"github.com/carlosnayan/agentdb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(kind schema.Kind) schema.Field {
	return schema.Field{Name: "f", Kind: kind, Nullable: true}
}

func TestDecode_Scalars(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		kind schema.Kind
		raw  any
		want any
	}{
		{"int from int64", schema.Int, int64(7), int64(7)},
		{"int from bytes", schema.Int, []byte("42"), int64(42)},
		{"float from bytes", schema.Float, []byte("1.5"), 1.5},
		{"bool from int", schema.Boolean, int64(1), true},
		{"bool from bytes", schema.Boolean, []byte("0"), false},
		{"string from bytes", schema.String, []byte("hello"), "hello"},
		{"time", schema.DateTime, ts.In(time.FixedZone("x", 3600)), ts},
		{"time from mysql text", schema.DateTime, []byte("2024-03-01 10:30:00.000"), ts},
		{"time from sqlite text", schema.DateTime, "2024-03-01 10:30:00+00:00", ts},
		{"null", schema.String, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(field(tt.kind), tt.raw)
			require.NoError(t, err)
			if want, ok := tt.want.(time.Time); ok {
				assert.True(t, want.Equal(got.(time.Time)), "got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Decimal(t *testing.T) {
	for _, raw := range []any{"19.990000000000000000000000000001", []byte("19.990000000000000000000000000001")} {
		got, err := Decode(field(schema.Decimal), raw)
		require.NoError(t, err)
		assert.Equal(t, "19.990000000000000000000000000001", got.(decimal.Decimal).String())
	}
}

func TestDecode_UUID(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

	for _, raw := range []any{id.String(), []byte(id.String()), [16]byte(id), id[:]} {
		got, err := Decode(field(schema.UUID), raw)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestDecode_JSON(t *testing.T) {
	got, err := Decode(field(schema.JSON), []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, types.JSON(`{"a":1}`), got)

	got, err = Decode(field(schema.JSON), []byte("null"))
	require.NoError(t, err)
	assert.True(t, got.(types.JSON).IsJSONNull())

	got, err = Decode(field(schema.JSON), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Decode(field(schema.JSON), map[string]any{"b": true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":true}`, got.(types.JSON).String())

	_, err = Decode(field(schema.JSON), "{broken")
	assert.Error(t, err)
}

func TestDecode_StringList(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{"native", []string{"a", "b"}, []string{"a", "b"}},
		{"pgx any slice", []any{"a", "b"}, []string{"a", "b"}},
		{"json text", `["slack","zapier"]`, []string{"slack", "zapier"}},
		{"json bytes", []byte(`[]`), []string{}},
		{"pg literal", `{plumbing,"hvac, residential","say \"hi\""}`, []string{"plumbing", "hvac, residential", `say "hi"`}},
		{"pg empty", `{}`, []string{}},
		{"null", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(field(schema.StringList), tt.raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	pg := dialect.GetDialect("postgresql")
	sqlite := dialect.GetDialect("sqlite")
	price := decimal.RequireFromString("1234.5678")
	id := uuid.New()

	tests := []struct {
		name string
		d    dialect.Dialect
		kind schema.Kind
		in   any
		want any
	}{
		{"decimal as text", pg, schema.Decimal, price, "1234.5678"},
		{"decimal pointer", pg, schema.Decimal, &price, "1234.5678"},
		{"decimal from string", pg, schema.Decimal, "0.10", "0.1"},
		{"uuid", pg, schema.UUID, id, id.String()},
		{"int widening", pg, schema.Int, int32(3), int64(3)},
		{"list on postgres", pg, schema.StringList, []string{"a"}, []string{"a"}},
		{"list on sqlite", sqlite, schema.StringList, []string{"a", "b"}, `["a","b"]`},
		{"empty list on sqlite", sqlite, schema.StringList, []string(nil), `[]`},
		{"json value", pg, schema.JSON, map[string]any{"k": "v"}, `{"k":"v"}`},
		{"json raw", pg, schema.JSON, types.JSON(`[1,2]`), `[1,2]`},
		{"json string value", pg, schema.JSON, "plain", `"plain"`},
		{"db null", pg, schema.JSON, types.DbNull, nil},
		{"json null", pg, schema.JSON, types.JsonNull, "null"},
		{"nil json", pg, schema.JSON, types.JSON(nil), nil},
		{"nil", pg, schema.String, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.d, field(tt.kind), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	pg := dialect.GetDialect("postgresql")

	tests := []struct {
		name string
		kind schema.Kind
		in   any
	}{
		{"string for bool", schema.Boolean, "yes"},
		{"int for string", schema.String, 5},
		{"bad decimal", schema.Decimal, "abc"},
		{"bad uuid", schema.UUID, "not-a-uuid"},
		{"sentinel on scalar", schema.String, types.DbNull},
		{"any null written", schema.JSON, types.AnyNull},
		{"invalid raw json", schema.JSON, types.JSON("{")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(pg, field(tt.kind), tt.in)
			assert.Error(t, err)
		})
	}
}
