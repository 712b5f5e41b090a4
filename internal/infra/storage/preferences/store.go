package preferences

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrStore возвращается при ошибке Redis
	ErrStore = errors.New("preferences.store: redis error")
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Store избранные собеседники пользователя в Redis.
// Изменения публикуются в канал пользователя, подписчики получают
// уведомление вместо периодического перечитывания.
type Store struct {
	client *redis.Client
	log    Logger
}

// NewStore создает хранилище предпочтений
func NewStore(client *redis.Client, log Logger) *Store {
	return &Store{client: client, log: log}
}

func favoritesKey(userID int64) string {
	return fmt.Sprintf("prefs:%d:favorites", userID)
}

func changesChannel(userID int64) string {
	return fmt.Sprintf("prefs:%d:changes", userID)
}

// Favorites ID избранных собеседников по возрастанию
func (s *Store) Favorites(ctx context.Context, userID int64) ([]int64, error) {
	members, err := s.client.SMembers(ctx, favoritesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: Favorites - smembers: %v", ErrStore, err)
	}
	return parseIDs(members, s.log), nil
}

// SetFavorite добавляет или убирает собеседника из избранного
func (s *Store) SetFavorite(ctx context.Context, userID, counterpartID int64, favorite bool) error {
	key := favoritesKey(userID)
	member := strconv.FormatInt(counterpartID, 10)

	var err error
	if favorite {
		err = s.client.SAdd(ctx, key, member).Err()
	} else {
		err = s.client.SRem(ctx, key, member).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: SetFavorite - update set: %v", ErrStore, err)
	}

	if err := s.client.Publish(ctx, changesChannel(userID), member).Err(); err != nil {
		// само значение уже сохранено, подписчики увидят его при следующей загрузке
		s.log.Warn("SetFavorite: publish change for user=%d failed: %v", userID, err)
	}
	return nil
}

// Watch вызывает onChange с актуальным списком избранных при каждом изменении.
// Блокируется до отмены ctx.
func (s *Store) Watch(ctx context.Context, userID int64, onChange func([]int64)) error {
	sub := s.client.Subscribe(ctx, changesChannel(userID))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("%w: Watch - subscribe: %v", ErrStore, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			favs, err := s.Favorites(ctx, userID)
			if err != nil {
				s.log.Warn("Watch: reload favorites for user=%d failed: %v", userID, err)
				continue
			}
			onChange(favs)
		}
	}
}

func parseIDs(members []string, log Logger) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Warn("parseIDs: skipping malformed favorite %q", m)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
