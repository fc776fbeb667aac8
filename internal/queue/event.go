// Package queue defines message payloads exchanged over the message broker.
package queue

// MatchClaimedEvent is published when an orderer successfully claims a
// deliverer. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type MatchClaimedEvent struct {
	MatchID      string `json:"match_id"`
	OrdererID    string `json:"orderer_id"`
	DelivererID  string `json:"deliverer_id"`
	HallID       string `json:"hall_id"`
	HallName     string `json:"hall_name"`
	DesiredOrder string `json:"desired_order"`
	ClaimedAt    string `json:"claimed_at"`
}
