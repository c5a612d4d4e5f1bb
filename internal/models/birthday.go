package models

import "time"

// Birthday is one stored birthday entry. Records are immutable after
// creation; the only field that ever changes is the per-day announcement
// marker maintained by the store.
type Birthday struct {
	ID          string `json:"id"`
	RealName    string `json:"realName"`
	DisplayName string `json:"displayName"`
	ChatHandle  string `json:"chatHandle"`
	BirthDate   string `json:"birthDate"`
	// LastNotifiedOn holds the YYYY-MM-DD day of the most recent webhook
	// announcement for this record. Internal bookkeeping, never serialized.
	LastNotifiedOn string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}
