package form

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	cases := []struct {
		raw  string
		want Number
	}{
		{"12", Int(12)},
		{"-3", Int(-3)},
		{"+7", Int(7)},
		{"  42", Int(42)},
		{"\t5\n", Int(5)},
		{"12abc", Int(12)},
		{"3.9", Int(3)},
		{"007", Int(7)},
		{"-0", Int(0)},
		{"", Number{Kind: NaN}},
		{"abc", Number{Kind: NaN}},
		{"-", Number{Kind: NaN}},
		{"+-1", Number{Kind: NaN}},
		{"1e3", Int(1)},
		{"99999999999999999999999", Int(math.MaxInt)},
		{"-99999999999999999999999", Int(math.MinInt)},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseInt(tc.raw))
		})
	}
}

func TestNumber_OrZeroAndString(t *testing.T) {
	assert.Equal(t, 0, Number{}.OrZero())
	assert.Equal(t, 0, Number{Kind: NaN}.OrZero())
	assert.Equal(t, 8, Int(8).OrZero())

	assert.Equal(t, "", Number{}.String())
	assert.Equal(t, "", Number{Kind: NaN}.String())
	assert.Equal(t, "", Int(0).String())
	assert.Equal(t, "-2", Int(-2).String())
}
