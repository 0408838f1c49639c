package models

import "time"

// Card is the owning tenant entity for every booking resource. The engine
// only reads it to confirm existence and to resolve the owner timezone;
// card management lives in the surrounding CRM.
type Card struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Slug           string    `db:"slug" json:"slug"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	Timezone       string    `db:"timezone" json:"timezone"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
