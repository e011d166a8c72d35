package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameKey_Stable(t *testing.T) {
	k1 := GameKey("Lakers", "Celtics", "2026-01-15")
	k2 := GameKey("Lakers", "Celtics", "2026-01-15")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 12)
}

func TestGameKey_Normalization(t *testing.T) {
	base := GameKey("Lakers", "Celtics", "2026-01-15")
	assert.Equal(t, base, GameKey("  lakers ", "CELTICS", "2026-01-15"))
	assert.Equal(t, base, GameKey("LAKERS", " celtics  ", "2026-01-15"))
}

func TestGameKey_DistinctGames(t *testing.T) {
	k1 := GameKey("Lakers", "Celtics", "2026-01-15")
	k2 := GameKey("Celtics", "Lakers", "2026-01-15")
	k3 := GameKey("Lakers", "Celtics", "2026-01-16")
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestLabel(t *testing.T) {
	gs := &GameSnapshot{Teams: Teams{Away: "Jets", Home: "Bills"}}
	assert.Equal(t, "Jets @ Bills", gs.Label())
}
