package model

// AuthUser - identity taken from a verified access token
type AuthUser struct {
	Subject string
	Email   string
	Role    string
}
