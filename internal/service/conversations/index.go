package conversations

import (
	"sort"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// Index хранит все сырые треды пользователя для инкрементальных обновлений.
// Активность треда только растёт (keep-if-newer), поэтому канонический тред
// ключа никогда не откатывается назад во времени.
type Index struct {
	threads map[int64]*domain.ChatThreadRecord
	// touched поколение загрузки, в котором тред последний раз менялся событием
	touched map[int64]uint64
	gen     uint64
}

// NewIndex создает пустой индекс
func NewIndex() *Index {
	return &Index{
		threads: make(map[int64]*domain.ChatThreadRecord),
		touched: make(map[int64]uint64),
	}
}

// BeginLoad отмечает начало полной выборки. Возвращённое поколение
// передаётся в Reset вместе с результатом выборки.
func (ix *Index) BeginLoad() uint64 {
	ix.gen++
	return ix.gen
}

// Reset заменяет содержимое индекса полной выборкой, начатой в поколении since.
// Треды, которые уже видели более свежими, не откатываются. Тред, которого
// нет в выборке, удаляется, только если после начала выборки его не
// меняли события.
func (ix *Index) Reset(records []domain.ChatThreadRecord, since uint64) {
	next := make(map[int64]*domain.ChatThreadRecord, len(records))
	for _, rec := range records {
		r := rec.Clone()
		if prev, ok := ix.threads[rec.ID]; ok {
			mergeThread(prev, &r)
			r = *prev
		}
		sortMessages(r.Messages)
		next[rec.ID] = &r
	}
	for id, cur := range ix.threads {
		if _, ok := next[id]; ok {
			continue
		}
		if ix.touched[id] >= since {
			next[id] = cur
		}
	}
	for id := range ix.touched {
		if _, ok := next[id]; !ok {
			delete(ix.touched, id)
		}
	}
	ix.threads = next
}

// ApplyThread вставка или обновление треда. Повторное применение того же
// события ничего не меняет. Возвращает true, если состояние изменилось.
func (ix *Index) ApplyThread(rec domain.ChatThreadRecord) bool {
	cur, ok := ix.threads[rec.ID]
	if !ok {
		r := rec.Clone()
		sortMessages(r.Messages)
		ix.threads[rec.ID] = &r
		ix.touched[rec.ID] = ix.gen
		return true
	}

	before := fingerprint(cur)
	incoming := rec.Clone()
	mergeThread(cur, &incoming)
	if fingerprint(cur) == before {
		return false
	}
	ix.touched[rec.ID] = ix.gen
	return true
}

// ApplyMessage вставка или обновление сообщения в известном треде
func (ix *Index) ApplyMessage(msg domain.Message) (bool, error) {
	cur, ok := ix.threads[msg.ThreadID]
	if !ok {
		return false, ErrUnknownThread
	}

	before := fingerprint(cur)
	upsertMessage(cur, msg)
	sortMessages(cur.Messages)
	if fingerprint(cur) == before {
		return false, nil
	}
	ix.touched[msg.ThreadID] = ix.gen
	return true, nil
}

// MarkRead помечает сообщения треда прочитанными локально
func (ix *Index) MarkRead(threadID int64, messageIDs []int64) bool {
	cur, ok := ix.threads[threadID]
	if !ok {
		return false
	}
	ids := make(map[int64]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = struct{}{}
	}
	for i := range cur.Messages {
		if _, hit := ids[cur.Messages[i].ID]; hit {
			cur.Messages[i].IsRead = true
		}
	}
	return true
}

// Has true, если тред есть в индексе
func (ix *Index) Has(threadID int64) bool {
	_, ok := ix.threads[threadID]
	return ok
}

// Thread копия треда
func (ix *Index) Thread(threadID int64) (domain.ChatThreadRecord, bool) {
	cur, ok := ix.threads[threadID]
	if !ok {
		return domain.ChatThreadRecord{}, false
	}
	return cur.Clone(), true
}

// Records копии всех тредов в порядке ID
func (ix *Index) Records() []domain.ChatThreadRecord {
	out := make([]domain.ChatThreadRecord, 0, len(ix.threads))
	for _, t := range ix.threads {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mergeThread вливает incoming в cur: метаданные берутся только из более
// свежей записи, сообщения объединяются по ID, прочитанность не сбрасывается
func mergeThread(cur, incoming *domain.ChatThreadRecord) {
	if !incoming.LastActivityAt.Before(cur.LastActivityAt) {
		cur.LastActivityAt = incoming.LastActivityAt
		if incoming.ConversationKey != "" {
			cur.ConversationKey = incoming.ConversationKey
		}
		if incoming.BookingID != nil {
			id := *incoming.BookingID
			cur.BookingID = &id
		}
	}
	for _, m := range incoming.Messages {
		upsertMessage(cur, m)
	}
	sortMessages(cur.Messages)
}

func upsertMessage(t *domain.ChatThreadRecord, msg domain.Message) {
	if msg.CreatedAt.After(t.LastActivityAt) {
		t.LastActivityAt = msg.CreatedAt
	}
	for i := range t.Messages {
		if t.Messages[i].ID != msg.ID {
			continue
		}
		read := t.Messages[i].IsRead || msg.IsRead
		t.Messages[i] = msg
		t.Messages[i].ThreadID = t.ID
		t.Messages[i].IsRead = read
		return
	}
	msg.ThreadID = t.ID
	t.Messages = append(t.Messages, msg)
}

func sortMessages(ms []domain.Message) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

type threadFingerprint struct {
	activity int64
	key      string
	booking  int64
	messages int
	read     int
	bodies   string
}

func fingerprint(t *domain.ChatThreadRecord) threadFingerprint {
	fp := threadFingerprint{
		activity: t.LastActivityAt.UnixNano(),
		key:      t.ConversationKey,
		messages: len(t.Messages),
	}
	if t.BookingID != nil {
		fp.booking = *t.BookingID
	}
	for _, m := range t.Messages {
		if m.IsRead {
			fp.read++
		}
		fp.bodies += m.Body
	}
	return fp
}
