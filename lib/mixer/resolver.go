package mixer

import (
	"slices"
	"sort"

	"faderbridge/lib/state"
)

// Resolver maps the channels of one mixer to faders. Channel.AssignedFader
// is the source of truth; the fader -> channels map is a cache that
// SetAssignment invalidates. Assignments must go through SetAssignment.
type Resolver struct {
	store   *state.Store
	mixer   int
	reverse map[int][]int
}

func NewResolver(store *state.Store, mixer int) *Resolver {
	return &Resolver{store: store, mixer: mixer}
}

// ChannelsFor returns the channels assigned to fader in ascending order.
// The slice is the caller's own.
func (r *Resolver) ChannelsFor(fader int) []int {
	if r.reverse == nil {
		r.rebuild()
	}
	return slices.Clone(r.reverse[fader])
}

// SetAssignment points ch at fader and returns the previous fader. A fader
// index outside the fader list unassigns the channel.
func (r *Resolver) SetAssignment(ch, fader int) int {
	s := r.store.State()
	c, ok := s.Channel(r.mixer, ch)
	if !ok {
		return state.Unassigned
	}
	if _, ok := s.Fader(fader); !ok {
		fader = state.Unassigned
	}
	r.store.Dispatch(state.SetAssignedFader{Mixer: r.mixer, Channel: ch, Fader: fader})
	r.Invalidate()
	return c.AssignedFader
}

func (r *Resolver) Invalidate() {
	r.reverse = nil
}

func (r *Resolver) rebuild() {
	s := r.store.State()
	r.reverse = map[int][]int{}
	if r.mixer < 0 || r.mixer >= len(s.Mixers) {
		return
	}
	for i, c := range s.Mixers[r.mixer].Channels {
		if _, ok := s.Fader(c.AssignedFader); ok {
			r.reverse[c.AssignedFader] = append(r.reverse[c.AssignedFader], i)
		}
	}
	for _, chans := range r.reverse {
		sort.Ints(chans)
	}
}

// AssignedRefs derives the fader -> channel list over every mixer, the form
// published to clients through state.SetAssignedChannels.
func AssignedRefs(s state.State) map[int][]state.ChannelRef {
	refs := map[int][]state.ChannelRef{}
	for m, mixer := range s.Mixers {
		for i, c := range mixer.Channels {
			if _, ok := s.Fader(c.AssignedFader); ok {
				refs[c.AssignedFader] = append(refs[c.AssignedFader], state.ChannelRef{Mixer: m, Channel: i})
			}
		}
	}
	return refs
}

func (r *Resolver) Refs() map[int][]state.ChannelRef {
	return AssignedRefs(r.store.State())
}
