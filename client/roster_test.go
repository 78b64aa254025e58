package client_test

import (
	"testing"

	"github.com/hijra-meet/hijra-meet/client"
	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoster_UpsertIdempotent(t *testing.T) {
	r := client.NewRoster()

	m := meta("participant-a", "Alice", client.RoleHost)

	// Duplicate deliveries converge to the same state.
	r.Upsert(m)
	r.Upsert(m)
	r.Upsert(m)

	assert.Equal(t, 1, r.Size())

	p, ok := r.Get("participant-a")
	require.True(t, ok)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, client.RoleHost, p.Role)
}

func TestRoster_UpsertOrderIndependent(t *testing.T) {
	metas := []realtime.PresenceMeta{
		meta("participant-a", "Alice", client.RoleHost),
		meta("participant-b", "Bob", client.RoleParticipant),
		meta("participant-c", "Carol", client.RoleParticipant),
	}

	forward := client.NewRoster()
	for _, m := range metas {
		forward.Upsert(m)
	}

	backward := client.NewRoster()
	for i := len(metas) - 1; i >= 0; i-- {
		backward.Upsert(metas[i])
	}

	assert.Equal(t, forward.List(), backward.List())
}

func TestRoster_UpsertPreservesHandRaise(t *testing.T) {
	r := client.NewRoster()

	r.Upsert(meta("participant-a", "Alice", client.RoleParticipant))
	r.SetHandRaised("participant-a", true)

	// A presence update does not clear the locally tracked flag.
	r.Upsert(meta("participant-a", "Alice Cooper", client.RoleParticipant))

	p, ok := r.Get("participant-a")
	require.True(t, ok)
	assert.Equal(t, "Alice Cooper", p.DisplayName)
	assert.True(t, p.HandRaised)
}

func TestRoster_SyncReplacesState(t *testing.T) {
	r := client.NewRoster()

	r.Upsert(meta("participant-a", "Alice", client.RoleParticipant))
	r.Upsert(meta("participant-b", "Bob", client.RoleParticipant))
	r.SetHandRaised("participant-a", true)

	r.Sync(map[identifiers.ParticipantID][]realtime.PresenceMeta{
		"participant-a": {meta("participant-a", "Alice", client.RoleParticipant)},
		"participant-c": {meta("participant-c", "Carol", client.RoleParticipant)},
	})

	assert.Equal(t, 2, r.Size())

	_, ok := r.Get("participant-b")
	assert.False(t, ok)

	// Retained members keep their hand-raise flag across the sync.
	a, ok := r.Get("participant-a")
	require.True(t, ok)
	assert.True(t, a.HandRaised)
}

func TestRoster_SyncLastMetaWins(t *testing.T) {
	r := client.NewRoster()

	r.Sync(map[identifiers.ParticipantID][]realtime.PresenceMeta{
		"participant-a": {
			meta("participant-a", "Old Tab", client.RoleParticipant),
			meta("participant-a", "New Tab", client.RoleHost),
		},
	})

	p, ok := r.Get("participant-a")
	require.True(t, ok)
	assert.Equal(t, "New Tab", p.DisplayName)
	assert.Equal(t, client.RoleHost, p.Role)
}

func TestRoster_RemoveUnknown(t *testing.T) {
	r := client.NewRoster()

	r.Remove("participant-missing")
	assert.Equal(t, 0, r.Size())
}

func TestRoster_SetHandRaisedUnknown(t *testing.T) {
	r := client.NewRoster()

	// Flagging a member we have not seen yet must not invent one.
	r.SetHandRaised("participant-missing", true)
	assert.Equal(t, 0, r.Size())
}

func TestRoster_ListSorted(t *testing.T) {
	r := client.NewRoster()

	r.Upsert(meta("participant-c", "Carol", client.RoleParticipant))
	r.Upsert(meta("participant-a", "Alice", client.RoleParticipant))
	r.Upsert(meta("participant-b", "Bob", client.RoleParticipant))

	list := r.List()
	require.Equal(t, 3, len(list))
	assert.Equal(t, identifiers.ParticipantID("participant-a"), list[0].ID)
	assert.Equal(t, identifiers.ParticipantID("participant-b"), list[1].ID)
	assert.Equal(t, identifiers.ParticipantID("participant-c"), list[2].ID)
}
