package user

import "time"

// User is an account allowed to own modules and exchange messages for them.
type User struct {
	// ID is the primary key.
	ID uint `gorm:"primaryKey" json:"id"`
	// Username is the unique login name.
	Username string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `gorm:"size:60;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
