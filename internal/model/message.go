package model

import "time"

// Message is a chat entry on a task.
type Message struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	ProjectID string    `json:"project_id" db:"project_id" bson:"project_id"`
	TaskID    string    `json:"task_id" db:"task_id" bson:"task_id"`
	UserID    string    `json:"user_id" db:"user_id" bson:"user_id"`
	Text      string    `json:"text" db:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}
