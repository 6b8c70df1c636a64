package service

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

func abc() []domain.TrackRef {
	return []domain.TrackRef{
		createTestTrack("a", "Alpha", "Artist"),
		createTestTrack("b", "Bravo", "Artist"),
		createTestTrack("c", "Charlie", "Artist"),
	}
}

func TestNavigator_NextSequential(t *testing.T) {
	nav := NewNavigator()
	list := abc()

	next, ok := nav.Next(list, "a", false)
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)

	next, ok = nav.Next(list, "c", false)
	require.True(t, ok)
	assert.Equal(t, "a", next.ID, "next wraps to the first track")
}

func TestNavigator_PreviousWraps(t *testing.T) {
	nav := NewNavigator()
	list := abc()

	prev, ok := nav.Previous(list, "a")
	require.True(t, ok)
	assert.Equal(t, "c", prev.ID)

	prev, ok = nav.Previous(list, "c")
	require.True(t, ok)
	assert.Equal(t, "b", prev.ID)
}

func TestNavigator_NextThenPreviousRoundTrips(t *testing.T) {
	nav := NewNavigator()
	lists := [][]domain.TrackRef{
		abc(),
		abc()[:2],
		abc()[:1],
	}

	for _, list := range lists {
		for _, track := range list {
			next, ok := nav.Next(list, track.ID, false)
			require.True(t, ok)
			back, ok := nav.Previous(list, next.ID)
			require.True(t, ok)
			assert.Equal(t, track.ID, back.ID, "len=%d start=%s", len(list), track.ID)
		}
	}
}

func TestNavigator_SingleElement(t *testing.T) {
	nav := NewNavigator()
	list := abc()[:1]

	next, ok := nav.Next(list, "a", false)
	require.True(t, ok)
	assert.Equal(t, "a", next.ID)

	prev, ok := nav.Previous(list, "a")
	require.True(t, ok)
	assert.Equal(t, "a", prev.ID)
}

func TestNavigator_UnknownIDRestartsAtFirst(t *testing.T) {
	nav := NewNavigator()
	list := abc()

	next, ok := nav.Next(list, "gone", false)
	require.True(t, ok)
	assert.Equal(t, "a", next.ID)

	next, ok = nav.Next(list, "gone", true)
	require.True(t, ok)
	assert.Equal(t, "a", next.ID)

	prev, ok := nav.Previous(list, "gone")
	require.True(t, ok)
	assert.Equal(t, "a", prev.ID)
}

func TestNavigator_EmptyList(t *testing.T) {
	nav := NewNavigator()

	_, ok := nav.Next(nil, "a", false)
	assert.False(t, ok)

	_, ok = nav.Next([]domain.TrackRef{}, "a", true)
	assert.False(t, ok)

	_, ok = nav.Previous(nil, "a")
	assert.False(t, ok)
}

func TestNavigator_ShuffleCoversWholeList(t *testing.T) {
	nav := NewNavigatorWithRand(rand.New(rand.NewPCG(1, 2)))
	list := abc()

	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		next, ok := nav.Next(list, "b", true)
		require.True(t, ok)
		seen[next.ID]++
	}

	// uniform over the whole list, current track included
	assert.Len(t, seen, 3)
	for id, n := range seen {
		assert.Greater(t, n, 50, id)
	}
}

func TestNavigator_PreviousIgnoresShuffle(t *testing.T) {
	nav := NewNavigatorWithRand(rand.New(rand.NewPCG(7, 7)))
	list := abc()

	for i := 0; i < 20; i++ {
		prev, ok := nav.Previous(list, "b")
		require.True(t, ok)
		assert.Equal(t, "a", prev.ID)
	}
}
