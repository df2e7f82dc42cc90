package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinorUnits(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		100:   "1.00",
		12345: "123.45",
		-2550: "-25.50",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMinorUnits(in))
	}
}

func TestParseMinorUnits(t *testing.T) {
	got, err := ParseMinorUnits("123.4")
	require.NoError(t, err)
	assert.Equal(t, int64(12340), got)

	got, err = ParseMinorUnits("99")
	require.NoError(t, err)
	assert.Equal(t, int64(9900), got)

	_, err = ParseMinorUnits("1.234")
	assert.Error(t, err)

	_, err = ParseMinorUnits("abc")
	assert.Error(t, err)
}

func TestConvertMinorUnitsRoundsHalfUp(t *testing.T) {
	// 1000 EGP cents at 0.0755 -> 75.5 -> 76
	assert.Equal(t, int64(76), ConvertMinorUnits(1000, 0.0755))
	assert.Equal(t, int64(75), ConvertMinorUnits(1000, 0.0754))
	assert.Equal(t, int64(1000), ConvertMinorUnits(1000, 1))
}
