package models

import "time"

// Session is one table opening. Only one session per owner may be active.
type Session struct {
	ID       string    `json:"id"`        // Primary key
	OwnerID  string    `json:"owner_id"`  // Account that opened the table
	Date     time.Time `json:"date"`      // Creation timestamp
	IsActive bool      `json:"is_active"` // False once archived
}
