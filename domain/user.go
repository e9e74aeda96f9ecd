package domain

// User is an identity record. The email doubles as the storage key and is
// always lowercased before use.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"` // never leaves the server
}

// Sanitized strips the credential secret before a user crosses the network
// boundary.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
