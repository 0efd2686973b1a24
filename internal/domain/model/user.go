package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	HashedPassword string          `json:"-"`
	Role           string          `json:"role"`
	Streak         int             `json:"streak"`
	LastSolvedDate string          `json:"lastSolvedDate,omitempty"` // DayLayout, empty before the first solve
	Calendar       map[string]bool `json:"calendar"`
	Version        int             `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
