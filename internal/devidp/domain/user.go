package domain

import "time"

type User struct {
	ID           string
	Username     string
	Name         string
	Email        string
	PasswordHash string // argon2 encoded
	CreatedAt    time.Time
}
