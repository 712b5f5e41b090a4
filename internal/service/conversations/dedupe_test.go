package conversations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

const (
	userA int64 = 10
	userB int64 = 20
	userC int64 = 30
)

var t0 = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

func thread(id, a, b int64, activity time.Time, msgs ...domain.Message) domain.ChatThreadRecord {
	for i := range msgs {
		msgs[i].ThreadID = id
	}
	return domain.ChatThreadRecord{
		ID:             id,
		ParticipantA:   a,
		ParticipantB:   b,
		LastActivityAt: activity,
		Messages:       msgs,
	}
}

func msg(id, sender int64, body string, at time.Time, read bool) domain.Message {
	return domain.Message{ID: id, SenderID: sender, Body: body, CreatedAt: at, IsRead: read}
}

func TestBuild_MirroredThreadsCollapse(t *testing.T) {
	t1 := t0
	t2 := t0.Add(time.Hour)
	records := []domain.ChatThreadRecord{
		thread(1, userA, userB, t1,
			msg(100, userB, "old unread", t1, false),
			msg(101, userB, "old unread 2", t1, false),
		),
		thread(2, userB, userA, t2,
			msg(200, userB, "fresh", t2, false),
		),
	}

	convs := Build(records, userA, map[int64]domain.Profile{userB: {UserID: userB, Name: "Bob"}})

	require.Len(t, convs, 1)
	c := convs[0]
	assert.Equal(t, "10_20", c.Key)
	assert.Equal(t, int64(2), c.CanonicalThreadID)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "fresh", c.LastMessage.Body)
	assert.Equal(t, 1, c.UnreadCount, "unread comes from the canonical thread only")
	assert.Equal(t, "Bob", c.Counterpart.Name)
}

func TestBuild_TieBreaksOnLargerThreadID(t *testing.T) {
	records := []domain.ChatThreadRecord{
		thread(7, userA, userB, t0),
		thread(3, userB, userA, t0),
	}

	convs := Build(records, userA, nil)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(7), convs[0].CanonicalThreadID)

	// порядок входа не влияет на результат
	convs = Build([]domain.ChatThreadRecord{records[1], records[0]}, userA, nil)
	assert.Equal(t, int64(7), convs[0].CanonicalThreadID)
}

func TestBuild_MissingProfileUsesPlaceholder(t *testing.T) {
	convs := Build([]domain.ChatThreadRecord{thread(1, userA, userC, t0)}, userA, map[int64]domain.Profile{})

	require.Len(t, convs, 1)
	assert.Equal(t, userC, convs[0].CounterpartID)
	assert.Equal(t, "Unknown user", convs[0].Counterpart.Name)
	assert.Nil(t, convs[0].LastMessage)
}

func TestBuild_SortedByActivity(t *testing.T) {
	records := []domain.ChatThreadRecord{
		thread(1, userA, userB, t0),
		thread(2, userA, userC, t0.Add(time.Minute)),
	}

	convs := Build(records, userA, nil)
	require.Len(t, convs, 2)
	assert.Equal(t, "10_30", convs[0].Key)
	assert.Equal(t, "10_20", convs[1].Key)
}

func TestBuild_ExplicitConversationKeyWins(t *testing.T) {
	a := thread(1, userA, userB, t0)
	a.ConversationKey = "legacy"
	b := thread(2, userB, userA, t0)

	convs := Build([]domain.ChatThreadRecord{a, b}, userA, nil)
	assert.Len(t, convs, 2)
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, Build(nil, userA, nil))
}

func TestCounterparts(t *testing.T) {
	records := []domain.ChatThreadRecord{
		thread(1, userC, userA, t0),
		thread(2, userA, userB, t0),
		thread(3, userB, userA, t0),
	}
	assert.Equal(t, []int64{userB, userC}, Counterparts(records, userA))
}

func TestUnread(t *testing.T) {
	rec := thread(1, userA, userB, t0,
		msg(1, userB, "x", t0, false),
		msg(2, userA, "mine", t0, false),
		msg(3, userB, "y", t0, true),
		msg(4, userB, "z", t0, false),
	)

	assert.Equal(t, 2, UnreadCount(rec, userA))
	assert.Equal(t, []int64{1, 4}, UnreadMessageIDs(rec, userA))
	assert.Equal(t, 5, TotalUnread([]domain.Conversation{{UnreadCount: 2}, {UnreadCount: 3}}))
}
