package client

import (
	"sort"
	"sync"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/realtime"
)

// Role of a meeting member.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// Participant is one meeting member as known from presence.
type Participant struct {
	ID          identifiers.ParticipantID
	DisplayName string
	Role        Role
	HandRaised  bool
}

// Roster is the set of meeting members derived from presence events.
//
// Applying the same events in any interleaving converges to the same set:
// upserts are keyed by participant ID and carry full state, so duplicate
// and reordered deliveries are harmless.
type Roster struct {
	mu           sync.Mutex
	participants map[identifiers.ParticipantID]Participant
}

func NewRoster() *Roster {
	return &Roster{
		participants: map[identifiers.ParticipantID]Participant{},
	}
}

// Upsert adds or updates a member from its presence meta. A raised hand
// survives presence updates: it is tracked locally, not in presence.
func (r *Roster) Upsert(meta realtime.PresenceMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertLocked(meta)
}

func (r *Roster) upsertLocked(meta realtime.PresenceMeta) {
	existing := r.participants[meta.ParticipantID]

	r.participants[meta.ParticipantID] = Participant{
		ID:          meta.ParticipantID,
		DisplayName: meta.ParticipantName,
		Role:        Role(meta.Role),
		HandRaised:  existing.HandRaised,
	}
}

// Sync replaces the roster with the full presence state, preserving local
// hand-raise flags for members that remain.
func (r *Roster) Sync(state map[identifiers.ParticipantID][]realtime.PresenceMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.participants
	r.participants = make(map[identifiers.ParticipantID]Participant, len(state))

	for id, metas := range state {
		if len(metas) == 0 {
			continue
		}

		// Multiple metas for one key means multiple tabs or a rejoin; the
		// last meta wins.
		meta := metas[len(metas)-1]

		r.participants[id] = Participant{
			ID:          meta.ParticipantID,
			DisplayName: meta.ParticipantName,
			Role:        Role(meta.Role),
			HandRaised:  old[id].HandRaised,
		}
	}
}

// Remove deletes a member. Removing an unknown ID is a no-op.
func (r *Roster) Remove(id identifiers.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.participants, id)
}

// SetHandRaised flags a member. Unknown IDs are ignored.
func (r *Roster) SetHandRaised(id identifiers.ParticipantID, raised bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return
	}

	p.HandRaised = raised
	r.participants[id] = p
}

// Get returns a member by ID.
func (r *Roster) Get(id identifiers.ParticipantID) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]

	return p, ok
}

// List returns all members ordered by ID.
func (r *Roster) List() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	ret := make([]Participant, 0, len(r.participants))

	for _, p := range r.participants {
		ret = append(ret, p)
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID < ret[j].ID
	})

	return ret
}

// Size returns the number of members.
func (r *Roster) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.participants)
}
