package userservice

import "github.com/m04kA/SMC-BookingSync/internal/domain"

// Profile публичный профиль пользователя из UserService
type Profile struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"` // customer | provider
}

// ToDomain конвертирует профиль в снимок для разговора
func (p *Profile) ToDomain() domain.Profile {
	return domain.Profile{
		UserID:    p.ID,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
	}
}

// ErrorResponse модель ошибки от UserService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
