package cascade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineValue_HalfGlyph(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"+6½", 6.5},
		{"-6½", -6.5},
		{"6½", 6.5},
		{"-3", -3},
		{"46.5", 46.5},
		{"+7", 7},
		{"PK 0", 0},
	}
	for _, tt := range tests {
		got := parseLineValue(tt.in)
		require.NotNil(t, got, tt.in)
		assert.Equal(t, tt.want, *got, tt.in)
	}
	assert.Nil(t, parseLineValue("N/A"))
	assert.Nil(t, parseLineValue(""))
}

func TestParsePrice(t *testing.T) {
	p := parsePrice("-110")
	require.NotNil(t, p)
	assert.Equal(t, -110, *p)

	p = parsePrice("+240")
	require.NotNil(t, p)
	assert.Equal(t, 240, *p)

	assert.Nil(t, parsePrice("OFF"))
}

func TestLooksLikeEventBlock(t *testing.T) {
	assert.True(t, looksLikeEventBlock("Buffalo Bills\nMiami Dolphins\n-6½ -110"))
	assert.True(t, looksLikeEventBlock("Bills\nDolphins\no46½ -110"))
	assert.True(t, looksLikeEventBlock("Bills\nDolphins\n+240"))

	// 单行不过门控
	assert.False(t, looksLikeEventBlock("Buffalo Bills -6½ -110"))
	// 无任何盘口模式不过门控
	assert.False(t, looksLikeEventBlock("Standings\nTeam W L"))
	assert.False(t, looksLikeEventBlock(""))
}

func TestParseEventBlock_TokenOrdering(t *testing.T) {
	block := "Buffalo Bills\nMiami Dolphins\n-6½ -110 o46½ -105 +6½ -108 u46½ -115 -280 +240"
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	snap := parseEventBlock(block, "heritage", "football", "nfl", now)
	require.NotNil(t, snap)

	assert.Equal(t, "Buffalo Bills", snap.Teams.Away)
	assert.Equal(t, "Miami Dolphins", snap.Teams.Home)

	// 第一个让分token归客队,第二个归主队
	require.NotNil(t, snap.Markets.Spread)
	require.NotNil(t, snap.Markets.Spread.Away)
	assert.Equal(t, -6.5, *snap.Markets.Spread.Away.Line)
	assert.Equal(t, -110, *snap.Markets.Spread.Away.Price)
	require.NotNil(t, snap.Markets.Spread.Home)
	assert.Equal(t, 6.5, *snap.Markets.Spread.Home.Line)
	assert.Equal(t, -108, *snap.Markets.Spread.Home.Price)

	// 大小分先Over后Under
	require.NotNil(t, snap.Markets.Total)
	require.NotNil(t, snap.Markets.Total.Over)
	assert.Equal(t, 46.5, *snap.Markets.Total.Over.Line)
	assert.Equal(t, -105, *snap.Markets.Total.Over.Price)
	require.NotNil(t, snap.Markets.Total.Under)
	assert.Equal(t, 46.5, *snap.Markets.Total.Under.Line)
	assert.Equal(t, -115, *snap.Markets.Total.Under.Price)

	// 落单赔率按序归独赢
	require.NotNil(t, snap.Markets.Moneyline)
	require.NotNil(t, snap.Markets.Moneyline.Away)
	assert.Equal(t, -280, *snap.Markets.Moneyline.Away.Price)
	require.NotNil(t, snap.Markets.Moneyline.Home)
	assert.Equal(t, 240, *snap.Markets.Moneyline.Home.Price)
}

func TestParseEventBlock_NoMarketsDropped(t *testing.T) {
	now := time.Now()
	assert.Nil(t, parseEventBlock("Bills\nDolphins", "s", "football", "nfl", now))
	assert.Nil(t, parseEventBlock("只有一行 -110", "s", "football", "nfl", now))
}

func TestParseEventBlock_StableGameKey(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	a := parseEventBlock("Bills\nDolphins\n-6½ -110", "s", "football", "nfl", now)
	b := parseEventBlock("  BILLS  \n dolphins \n-7 -110", "s", "football", "nfl", now)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.GameKey, b.GameKey)
}
