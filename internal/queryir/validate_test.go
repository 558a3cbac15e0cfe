package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "empty select", query: Select{}},
		{name: "pointer select", query: &Select{Limit: 3}},
		{name: "nil query", query: nil, want: []string{"nil query"}},
		{name: "negative limit", query: Select{Limit: -1}, want: []string{"limit must not be negative, got -1"}},
		{
			name:  "unknown field",
			query: Select{Filter: Equals{Field: "color", Value: "red"}},
			want:  []string{`unknown field "color"`},
		},
		{
			name:  "text field with integer",
			query: Select{Filter: Equals{Field: FieldKind, Value: int64(1)}},
			want:  []string{"kind=: text field compared to an integer"},
		},
		{
			name:  "integer field with text",
			query: Select{Filter: NotEquals{Field: FieldRound, Value: "1"}},
			want:  []string{"round!=: integer field compared to text"},
		},
		{
			name:  "untyped int",
			query: Select{Filter: Equals{Field: FieldSeq, Value: 1}},
			want:  []string{"seq=: unsupported value type int"},
		},
		{
			name:  "compare on text",
			query: Select{Filter: Compare{Field: FieldDetail, Op: OpLess, Value: 1}},
			want:  []string{"detail: operator < needs an integer field"},
		},
		{
			name:  "unknown operator",
			query: Select{Filter: Compare{Field: FieldRound, Op: "<>", Value: 1}},
			want:  []string{`unknown operator "<>"`},
		},
		{
			name:  "prefix on integer",
			query: Select{Filter: Prefix{Field: FieldSeq, Value: "1"}},
			want:  []string{"seq: operator ^ needs a text field"},
		},
		{
			name: "and collects every error",
			query: Select{Filter: And{Predicates: []Predicate{
				Contains{Field: FieldRound, Value: "1"},
				nil,
				Equals{Field: FieldKind, Value: "crash"},
			}}},
			want: []string{"round: operator ~ needs a text field", "nil predicate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			if tt.want == nil {
				assert.True(t, result.IsValid)
				assert.Empty(t, result.Errors)
				assert.NoError(t, result.Err())
				return
			}
			assert.False(t, result.IsValid)
			assert.Equal(t, tt.want, result.Errors)
			assert.ErrorContains(t, result.Err(), "invalid query: "+tt.want[0])
		})
	}
}

func TestField(t *testing.T) {
	for _, f := range Fields {
		assert.True(t, f.Known(), f)
	}
	assert.False(t, Field("color").Known())
	assert.True(t, FieldRound.IsInt())
	assert.True(t, FieldSeq.IsInt())
	assert.False(t, FieldKind.IsInt())
}
