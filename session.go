package sessions

import "time"

// SessionBundle is the shape every session-establishing path returns:
// local login, federated login, refresh, and current-user lookups all
// produce the same bundle.
type SessionBundle struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	// AvatarURL is an explicit optional: populated only when the account
	// has a profile picture, never a runtime-typed lookup.
	AvatarURL   string `json:"avatar_url,omitempty"`
	AccessToken string `json:"access_token"`

	// RefreshToken is the raw rotating credential for the HTTP-only
	// cookie. Excluded from the JSON body; it travels only in the cookie.
	RefreshToken string `json:"-"`
	// RefreshExpiresAt matches the cookie expiry to the token lifetime.
	RefreshExpiresAt time.Time `json:"-"`
}

func newSessionBundle(user *User, accessToken string, refresh *RefreshToken) *SessionBundle {
	bundle := &SessionBundle{
		DisplayName: user.DisplayName,
		Username:    user.Username,
		AvatarURL:   user.ProfilePicture,
		AccessToken: accessToken,
	}

	if refresh != nil {
		bundle.RefreshToken = refresh.Token
		bundle.RefreshExpiresAt = refresh.ExpiresAt
	}

	return bundle
}
