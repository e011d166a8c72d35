package cascade

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapASPNet(t *testing.T) {
	// d的值是转义过的JSON字符串
	wrapped, err := json.Marshal(map[string]string{"d": `{"events":[]}`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[]}`, string(unwrapASPNet(wrapped)))

	// d的值直接是JSON对象
	assert.JSONEq(t, `{"events":[]}`, string(unwrapASPNet([]byte(`{"d":{"events":[]}}`))))

	// 非该形态原样返回
	plain := []byte(`[{"league":"nfl"}]`)
	assert.Equal(t, plain, unwrapASPNet(plain))
}

const sampleFeed = `{
  "events": [
    {
      "league": "NFL",
      "gamedate": "2026-09-13",
      "gametime": "13:00",
      "islive": false,
      "participants": [
        {"name": "Buffalo Bills", "rotnum": "451", "vhd": "V",
         "spread": "+6½", "spreadprice": "-110", "total": "46½", "totalprice": "-105", "moneyline": "+240"},
        {"name": "Miami Dolphins", "rotnum": "452", "vhd": "H",
         "spread": "-6½", "spreadprice": "-108", "total": "46½", "totalprice": "-115", "moneyline": "-280"}
      ]
    }
  ]
}`

func TestParseFeed(t *testing.T) {
	now := time.Date(2026, 9, 13, 12, 0, 0, 0, time.UTC)
	snaps := parseFeed([]byte(sampleFeed), "heritage", "football", "", now)
	require.Len(t, snaps, 1)

	snap := snaps[0]
	assert.Equal(t, "Buffalo Bills", snap.Teams.Away)
	assert.Equal(t, "Miami Dolphins", snap.Teams.Home)
	assert.Equal(t, "NFL", snap.League)
	assert.Equal(t, "451/452", snap.RotationNumber)
	assert.Equal(t, "2026-09-13", snap.EventDate)
	assert.False(t, snap.IsLive)

	require.NotNil(t, snap.Markets.Spread)
	assert.Equal(t, 6.5, *snap.Markets.Spread.Away.Line)
	assert.Equal(t, -110, *snap.Markets.Spread.Away.Price)
	assert.Equal(t, -6.5, *snap.Markets.Spread.Home.Line)

	require.NotNil(t, snap.Markets.Total)
	assert.Equal(t, 46.5, *snap.Markets.Total.Over.Line)
	assert.Equal(t, -105, *snap.Markets.Total.Over.Price)
	assert.Equal(t, 46.5, *snap.Markets.Total.Under.Line)

	require.NotNil(t, snap.Markets.Moneyline)
	assert.Equal(t, 240, *snap.Markets.Moneyline.Away.Price)
	assert.Equal(t, -280, *snap.Markets.Moneyline.Home.Price)
}

func TestParseFeed_ASPNetWrapper(t *testing.T) {
	wrapped, err := json.Marshal(map[string]string{"d": sampleFeed})
	require.NoError(t, err)

	snaps := parseFeed(wrapped, "heritage", "football", "nfl", time.Now())
	require.Len(t, snaps, 1)
	assert.Equal(t, "nfl", snaps[0].League)
}

func TestParseFeed_BareArray(t *testing.T) {
	body := `[{"participants":[
	  {"name":"A","vhd":"V","moneyline":"-120"},
	  {"name":"B","vhd":"H","moneyline":"+100"}]}]`
	snaps := parseFeed([]byte(body), "s", "football", "nfl", time.Now())
	require.Len(t, snaps, 1)
	assert.Equal(t, -120, *snaps[0].Markets.Moneyline.Away.Price)
}

func TestParseFeed_GarbageAndEmpty(t *testing.T) {
	assert.Empty(t, parseFeed([]byte("<html>blocked</html>"), "s", "f", "l", time.Now()))
	assert.Empty(t, parseFeed([]byte(`{"events":[]}`), "s", "f", "l", time.Now()))
	// 无任何市场的比赛被丢弃
	assert.Empty(t, parseFeed([]byte(`{"events":[{"participants":[{"name":"A","vhd":"V"},{"name":"B","vhd":"H"}]}]}`), "s", "f", "l", time.Now()))
}
