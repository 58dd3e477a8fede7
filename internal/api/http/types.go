package http

import domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"

// RegisterRequest creates a user account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest authenticates a user account.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// AlarmRequest creates or replaces an alarm. Time is HH:MM:SS in the
// server's configured zone.
type AlarmRequest struct {
	GroupID   uint   `json:"group_id"`
	Label     string `json:"label"`
	Time      string `json:"time"`
	Duration  int64  `json:"duration"`
	IsActive  bool   `json:"is_active"`
	Monday    bool   `json:"repeat_monday"`
	Tuesday   bool   `json:"repeat_tuesday"`
	Wednesday bool   `json:"repeat_wednesday"`
	Thursday  bool   `json:"repeat_thursday"`
	Friday    bool   `json:"repeat_friday"`
	Saturday  bool   `json:"repeat_saturday"`
	Sunday    bool   `json:"repeat_sunday"`
}

// repeatMask converts the request's weekday flags.
func (r *AlarmRequest) repeatMask() domain.RepeatMask {
	return domain.RepeatMask{
		Monday:    r.Monday,
		Tuesday:   r.Tuesday,
		Wednesday: r.Wednesday,
		Thursday:  r.Thursday,
		Friday:    r.Friday,
		Saturday:  r.Saturday,
		Sunday:    r.Sunday,
	}
}

// ControlRequest sends a command to a device over the MQTT bridge.
type ControlRequest struct {
	Command  string `json:"command"`
	Duration int64  `json:"duration"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
