package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "1_EU", Encode(1, "EU"))
	assert.Equal(t, "3_Paris", Encode(City.Level(), "Paris"))
	assert.Equal(t, "2_a_b", Encode(2, "a_b"))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		id       string
		wantKind Kind
		wantRaw  string
	}{
		{"1_EU", Continent, "EU"},
		{"2_FR", Country, "FR"},
		{"3_Paris", City, "Paris"},
		{"2_a_b", Country, "a_b"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			kind, raw, err := Decode(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantRaw, raw)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, id := range []string{"", "EU", "_EU", "1_", "x_EU", "12_EU", "0_EU", "4_EU", "-1_EU"} {
		t.Run(id, func(t *testing.T) {
			kind, raw, err := Decode(id)
			require.ErrorIs(t, err, ErrMalformedID)
			assert.Equal(t, KindNone, kind)
			assert.Empty(t, raw)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, kind := range []Kind{Continent, Country, City} {
		id := Encode(kind.Level(), "xYz9")
		got, raw, err := Decode(id)
		require.NoError(t, err)
		assert.Equal(t, kind, got)
		assert.Equal(t, "xYz9", raw)
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", KindNone.String())
	assert.Equal(t, "Continent", Continent.String())
	assert.Equal(t, "Country", Country.String())
	assert.Equal(t, "City", City.String())

	assert.Equal(t, Country, Continent.Child())
	assert.Equal(t, City, Country.Child())
	assert.Equal(t, KindNone, City.Child())
	assert.Equal(t, KindNone, KindNone.Child())

	k, ok := KindForLevel(2)
	assert.True(t, ok)
	assert.Equal(t, Country, k)
	_, ok = KindForLevel(9)
	assert.False(t, ok)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, 1, LevelOf("1_EU"))
	assert.Equal(t, 3, LevelOf("3_Paris"))
	assert.Equal(t, 0, LevelOf("bogus"))
	assert.Equal(t, 0, LevelOf(""))
}
