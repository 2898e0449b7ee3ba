package models

import "time"

// Lesson is the content unit whose script drives video generation.
type Lesson struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Script    string     `json:"script"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
