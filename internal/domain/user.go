package domain

// User represents an entry of the credential table.
type User struct {
	Username       string
	FullName       string
	Email          string
	HashedPassword string
	Disabled       bool
}
