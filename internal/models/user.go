package models

// User is a participant that can be attached to events.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ProfileSummary is a participant reference expanded for display.
// Username is empty when the referenced participant no longer exists.
type ProfileSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CreateUserRequest is the POST /api/v1/users/create payload.
type CreateUserRequest struct {
	Username string `json:"username"`
}
