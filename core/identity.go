package core

// Identity is the caller as asserted by the external identity provider.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (id Identity) IsAnonymous() bool {
	return id.UserID == ""
}
