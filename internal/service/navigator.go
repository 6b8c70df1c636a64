package service

import (
	"math/rand/v2"

	"github.com/samber/lo"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

// Navigator selects the next or previous track over a track list.
// It holds no state beyond its random source.
type Navigator struct {
	intn func(n int) int
}

// NewNavigator creates a navigator using the global random source.
func NewNavigator() Navigator {
	return Navigator{intn: rand.IntN}
}

// NewNavigatorWithRand creates a navigator with a deterministic random source.
func NewNavigatorWithRand(r *rand.Rand) Navigator {
	return Navigator{intn: r.IntN}
}

// Next returns the track after currentID.
//
// A currentID missing from the list restarts at the first track. With shuffle on,
// the result is a uniform pick over the whole list, which may be the current track.
// Otherwise the list wraps from the last track to the first.
// Returns false only when the list is empty.
func (n Navigator) Next(list []domain.TrackRef, currentID string, shuffle bool) (domain.TrackRef, bool) {
	if len(list) == 0 {
		return domain.TrackRef{}, false
	}

	idx := indexOf(list, currentID)
	if idx < 0 {
		return list[0], true
	}

	if shuffle {
		intn := n.intn
		if intn == nil {
			intn = rand.IntN
		}
		return list[intn(len(list))], true
	}

	return list[(idx+1)%len(list)], true
}

// Previous returns the track before currentID, wrapping from the first track to the last.
// Shuffle does not apply to previous. A missing currentID restarts at the first track.
// Returns false only when the list is empty.
func (n Navigator) Previous(list []domain.TrackRef, currentID string) (domain.TrackRef, bool) {
	if len(list) == 0 {
		return domain.TrackRef{}, false
	}

	idx := indexOf(list, currentID)
	if idx < 0 {
		return list[0], true
	}

	return list[(idx-1+len(list))%len(list)], true
}

func indexOf(list []domain.TrackRef, id string) int {
	_, idx, found := lo.FindIndexOf(list, func(t domain.TrackRef) bool { return t.ID == id })
	if !found {
		return -1
	}
	return idx
}
