package domain

import "time"

// UserPlan enumerates billing plans.
type UserPlan string

const (
	UserPlanFree UserPlan = "free"
	UserPlanPro  UserPlan = "pro"
)

// User represents an authenticated account within the platform.
type User struct {
	ID         string
	GoogleSub  string
	Email      string
	Name       string
	Picture    string
	Locale     string
	Plan       UserPlan
	QuotaDaily int
	QuotaUsed  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsFree reports whether the user is on the free plan.
func (u User) IsFree() bool {
	return u.Plan == UserPlanFree
}
