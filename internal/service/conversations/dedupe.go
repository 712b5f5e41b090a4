package conversations

import (
	"sort"
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// Build сворачивает сырые треды в список разговоров: один разговор на ключ.
// Каноническим считается тред с самой поздней активностью, при равенстве -
// с большим ID. Непрочитанные считаются только по каноническому треду.
// Функция чистая и тотальная: отсутствующий профиль заменяется заглушкой.
func Build(records []domain.ChatThreadRecord, currentUserID int64, profiles map[int64]domain.Profile) []domain.Conversation {
	canonical := SelectCanonical(records)

	out := make([]domain.Conversation, 0, len(canonical))
	for key, rec := range canonical {
		counterpartID := rec.Counterpart(currentUserID)
		profile, ok := profiles[counterpartID]
		if !ok {
			profile = domain.UnknownProfile(counterpartID)
		}

		conv := domain.Conversation{
			Key:               key,
			CanonicalThreadID: rec.ID,
			CounterpartID:     counterpartID,
			Counterpart:       profile,
			LastActivityAt:    rec.LastActivityAt,
			UnreadCount:       UnreadCount(rec, currentUserID),
		}
		if rec.BookingID != nil {
			id := *rec.BookingID
			conv.BookingID = &id
		}
		if last := lastMessage(rec); last != nil {
			conv.LastMessage = last
			at := last.CreatedAt
			conv.LastMessageAt = &at
		}
		out = append(out, conv)
	}

	sortConversations(out)
	return out
}

// SelectCanonical группирует треды по ключу и выбирает канонический в каждой группе
func SelectCanonical(records []domain.ChatThreadRecord) map[string]domain.ChatThreadRecord {
	canonical := make(map[string]domain.ChatThreadRecord, len(records))
	for _, rec := range records {
		key := rec.Key()
		current, ok := canonical[key]
		if !ok || isNewer(rec, current) {
			canonical[key] = rec
		}
	}
	return canonical
}

// Counterparts уникальные собеседники в порядке возрастания ID
func Counterparts(records []domain.ChatThreadRecord, currentUserID int64) []int64 {
	seen := make(map[int64]struct{}, len(records))
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		id := rec.Counterpart(currentUserID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// isNewer true, если a должен вытеснить b как канонический тред
func isNewer(a, b domain.ChatThreadRecord) bool {
	if !a.LastActivityAt.Equal(b.LastActivityAt) {
		return a.LastActivityAt.After(b.LastActivityAt)
	}
	return a.ID > b.ID
}

func lastMessage(rec domain.ChatThreadRecord) *domain.Message {
	var last *domain.Message
	for i := range rec.Messages {
		m := rec.Messages[i]
		if last == nil || m.CreatedAt.After(last.CreatedAt) ||
			(m.CreatedAt.Equal(last.CreatedAt) && m.ID > last.ID) {
			last = &m
		}
	}
	return last
}

func sortConversations(convs []domain.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		ai, aj := activity(convs[i]), activity(convs[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return convs[i].Key < convs[j].Key
	})
}

func activity(c domain.Conversation) time.Time {
	if c.LastMessageAt != nil && c.LastMessageAt.After(c.LastActivityAt) {
		return *c.LastMessageAt
	}
	return c.LastActivityAt
}
