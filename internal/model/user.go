package model

import "strings"

// User is the public profile of an account.
type User struct {
	ID          string `json:"id" db:"id" bson:"_id"`
	Email       string `json:"email" db:"email" bson:"email"`
	DisplayName string `json:"display_name" db:"display_name" bson:"display_name"`
}

// Handle returns the local part of the user's email, lowercased.
func (u User) Handle() string {
	local, _, _ := strings.Cut(strings.ToLower(u.Email), "@")
	return local
}
