package set_favorite

import "context"

type FavoritesStore interface {
	SetFavorite(ctx context.Context, userID, counterpartID int64, favorite bool) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
