package domain

// UserInfo is the slice of identity the game engine needs. The identity
// provider owns credentials and profiles; only a stable id and display
// name cross into this module.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
