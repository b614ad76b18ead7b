package model

import "time"

// Roles carried in the users.role column and in access token claims.
const (
	RoleAdmin       = "ADMIN"
	RoleParticipant = "PARTICIPANT"
)

// User is an account holder. Admins and participants share the table and
// are told apart by Role; Nationality is plain profile data.
//
// Optional profile columns are pointers so an absent value stays NULL,
// which keeps the passport and mobile unique indexes satisfiable.
type User struct {
	ID             int64   `json:"id"`
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	PasswordHash   string  `json:"-"`
	Role           string  `json:"role"`
	Nationality    *string `json:"nationality"`
	Sex            *string `json:"sex"`
	BirthYear      *int    `json:"birth_year"`
	PassportNo     *string `json:"passport_no"`
	Mobile         *string `json:"mobile"`
	CurrentAddress *string `json:"current_address"`
	BestRecord     *string `json:"best_record"`
}

// IsAdmin reports whether the account has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// RefreshToken is a row of refresh_tokens. Only the SHA-256 hash of the
// token handed to the client is stored.
type RefreshToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"` // nil while active
}
