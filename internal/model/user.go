package model

// User is a minimal view of an IAM user as returned by the todo and
// auth endpoints. Full user administration is owned by the IAM service.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
