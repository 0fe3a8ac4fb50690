package entity

import "time"

// User is an account row in the `users` table. PasswordHash and RefreshToken
// never leave the service; use Profile for anything returned to clients.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	Avatar       string    `db:"avatar"`
	CoverImage   string    `db:"cover_image"`
	PasswordHash string    `db:"password_hash"`
	RefreshToken *string   `db:"refresh_token"` // nil when logged out
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Profile is the outward projection of a User.
type Profile struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"fullName"`
	Avatar     string    `db:"avatar" json:"avatar"`
	CoverImage string    `db:"cover_image" json:"coverImage"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// StoredRefreshToken returns the current refresh credential or "".
func (u *User) StoredRefreshToken() string {
	if u.RefreshToken == nil {
		return ""
	}
	return *u.RefreshToken
}
