package get_favorites

import "context"

type FavoritesStore interface {
	Favorites(ctx context.Context, userID int64) ([]int64, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
