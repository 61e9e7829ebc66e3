package monster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/quizbattle/internal/game/monster"
)

func TestShippedMonstersLoad(t *testing.T) {
	cat, err := monster.LoadCatalog("../../../content/monsters")
	require.NoError(t, err)
	_, ok := cat.Get("goblin")
	assert.True(t, ok)
	assert.GreaterOrEqual(t, len(cat.All()), 3)
}
