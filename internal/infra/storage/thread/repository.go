package thread

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/pkg/psqlbuilder"
)

// Repository репозиторий тредов и сообщений чата
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория тредов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// ListByParticipant все треды пользователя вместе с сообщениями
func (r *Repository) ListByParticipant(ctx context.Context, participantID int64) ([]domain.ChatThreadRecord, error) {
	query, args, err := psqlbuilder.Select(
		"id",
		"conversation_key",
		"participant_a",
		"participant_b",
		"booking_id",
		"last_activity_at",
	).
		From("chat_threads").
		Where(squirrel.Or{
			squirrel.Eq{"participant_a": participantID},
			squirrel.Eq{"participant_b": participantID},
		}).
		OrderBy("last_activity_at DESC", "id DESC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByParticipant - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByParticipant - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	threads := make([]domain.ChatThreadRecord, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			t   domain.ChatThreadRecord
			key sql.NullString
		)
		if err := rows.Scan(&t.ID, &key, &t.ParticipantA, &t.ParticipantB, &t.BookingID, &t.LastActivityAt); err != nil {
			return nil, fmt.Errorf("%w: ListByParticipant - scan thread: %v", ErrScanRow, err)
		}
		t.ConversationKey = key.String
		t.Messages = make([]domain.Message, 0)
		index[t.ID] = len(threads)
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByParticipant - rows error: %v", ErrScanRow, err)
	}

	if len(threads) == 0 {
		return threads, nil
	}

	ids := make([]int64, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}

	messages, err := r.listMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		i := index[m.ThreadID]
		threads[i].Messages = append(threads[i].Messages, m)
	}

	return threads, nil
}

// MarkRead помечает сообщения треда прочитанными
func (r *Repository) MarkRead(ctx context.Context, threadID int64, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}

	exists, err := r.exists(ctx, threadID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrThreadNotFound
	}

	query, args, err := psqlbuilder.Update("chat_messages").
		Set("is_read", true).
		Where(squirrel.Eq{"thread_id": threadID, "id": messageIDs}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkRead - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: MarkRead - execute update: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) listMessages(ctx context.Context, threadIDs []int64) ([]domain.Message, error) {
	query, args, err := psqlbuilder.Select(
		"id",
		"thread_id",
		"sender_id",
		"body",
		"created_at",
		"is_read",
	).
		From("chat_messages").
		Where(squirrel.Eq{"thread_id": threadIDs}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: listMessages - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listMessages - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt, &m.IsRead); err != nil {
			return nil, fmt.Errorf("%w: listMessages - scan message: %v", ErrScanRow, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listMessages - rows error: %v", ErrScanRow, err)
	}

	return messages, nil
}

func (r *Repository) exists(ctx context.Context, threadID int64) (bool, error) {
	query, args, err := psqlbuilder.Select("1").
		From("chat_threads").
		Where(squirrel.Eq{"id": threadID}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: exists - build select query: %v", ErrBuildQuery, err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists - scan: %v", ErrScanRow, err)
	}
	return true, nil
}
