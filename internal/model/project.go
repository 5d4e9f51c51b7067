package model

import (
	"slices"
	"time"
)

// Project is a board shared by its members.
type Project struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	Name      string    `json:"name" db:"name" bson:"name"`
	Owner     string    `json:"owner" db:"owner" bson:"owner"`
	Members   []string  `json:"members" db:"-" bson:"members"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// HasMember reports whether uid is the owner or a member of p.
func (p Project) HasMember(uid string) bool {
	return uid != "" && (p.Owner == uid || slices.Contains(p.Members, uid))
}
