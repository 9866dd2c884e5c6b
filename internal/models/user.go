package models

import (
	"time"
)

// User represents a platform user
type User struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	TelegramChatID *string   `json:"telegram_chat_id" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UserRequest represents user registration/update request
type UserRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	TelegramChatID string `json:"telegram_chat_id"`
}

// UserResponse represents user information for API responses
type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	TelegramChatID string    `json:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Watchlist represents a user's followed tickers, refreshed on schedule
type Watchlist struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Ticker    string    `json:"ticker" db:"ticker"`
	AddedAt   time.Time `json:"added_at" db:"added_at"`
	User      *User     `json:"user,omitempty"`
}
