package sign_in

// SessionResponse сводка по открытой сессии
type SessionResponse struct {
	UserID        int64 `json:"userId"`
	Bookings      int   `json:"bookings"`
	Conversations int   `json:"conversations"`
	TotalUnread   int   `json:"totalUnread"`
}
