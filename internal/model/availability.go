package model

import "time"

// Availability represents a row in the `deliver_availability` table: one
// user's current offer to deliver from a specific dining hall.  The table
// holds at most one row per user (upsert-by-lookup semantics) and rows are
// never deleted — deactivation simply flips the Active flag.
//
// Fields:
//  ID           – auto-increment primary key assigned by the store.
//  UserID       – owning user (UUID string); at most one row per user.
//  HallID       – string key selecting a pickup hall from the fixed catalog.
//  DesiredOrder – free text describing what the deliverer wants picked up.
//  Active       – true while the user is available for matching.
//  UpdatedAt    – timestamp of last mutation; drives descending list order.
type Availability struct {
	ID           uint64    `json:"id"`            // deliver_availability.id
	UserID       string    `json:"user_id"`       // deliver_availability.user_id
	HallID       string    `json:"hall_id"`       // deliver_availability.hall_id
	DesiredOrder string    `json:"desired_order"` // deliver_availability.desired_order
	Active       bool      `json:"active"`        // deliver_availability.active
	UpdatedAt    time.Time `json:"updated_at"`    // deliver_availability.updated_at
}

// Deliverer is an Availability row enriched with display fields joined from
// the users table.  UserName falls back to the local part of the email when
// no display name is set; Contact carries the email itself.  Both are nil
// when the enrichment lookup failed — enrichment is best effort and never
// fails the listing.
type Deliverer struct {
	Availability
	UserName *string `json:"user_name"`
	Contact  *string `json:"contact"`
}
