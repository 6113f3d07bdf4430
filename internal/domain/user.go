package domain

import "time"

// User is a platform member. ReferrerID is set at registration and never
// changes; since a referrer must already exist, the referral graph is a forest.
type User struct {
	ID         string
	Name       string
	Email      string
	ReferrerID *string
	RankID     *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasReferrer reports whether the user was referred by someone.
func (u *User) HasReferrer() bool {
	return u.ReferrerID != nil && *u.ReferrerID != ""
}
