package models

// User is referenced by id only; profile data lives in the user service.
type User struct {
	ID int64 `json:"id"`
}
