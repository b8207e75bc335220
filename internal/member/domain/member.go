package domain

import (
	"time"

	"legal_marketplace_service/pkg/encrypt"
)

// MemberStatus marketplace account state
type MemberStatus int

// status: 0=offline, 1=online, 2=ban, 3=delete
const (
	// MemberStatusOffLine member is logged out
	MemberStatusOffLine MemberStatus = iota
	// MemberStatusOnLine member has an active session
	MemberStatusOnLine
	// MemberStatusBan member is blocked by an admin
	MemberStatusBan
	// MemberStatusDelete member account is removed
	MemberStatusDelete
)

// Member is a marketplace account, either a lawyer offering services or
// a client looking for one.
type Member struct {
	ID          int64
	MemberID    string
	Email       string
	Password    string
	DisplayName string
	Role        string
	Status      MemberStatus
}

// MemberSession tracks one logged-in session, stored in Redis under the
// member id.
type MemberSession struct {
	Token        string    `json:"Token"`
	MemberID     string    `json:"MemberID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// IsPasswordMatch checks the given plaintext against the stored hash.
func (m *Member) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(m.Password, inputPwd)
}

// IsExpired reports whether the session has passed its expiry.
func (s *MemberSession) IsExpired() bool {
	return time.Now().After(s.ExpiredAt)
}

// MemberQuery join conditions are used to query members
type MemberQuery struct {
	ID       *int64  `db:"id"`
	MemberID *string `db:"member_id"`
	Email    *string `db:"email"`
}
