package model

import "time"

// Match status values.  A match starts PENDING when an orderer claims a
// deliverer, becomes CONFIRMED once both parties have verified each
// other's PIN, and EXPIRED matches are rejected at verification time.
const (
	MatchPending   = "PENDING"
	MatchConfirmed = "CONFIRMED"
)

// Match models a row in the `matches` table — the handshake record created
// when an orderer claims a deliverer.  The two 4-digit PINs are generated
// server side: each party reads their own PIN to the other over an external
// channel (typically a video call) and types in what they heard.  The PINs
// carry no cryptographic weight; the record exists so both sides verify
// against the same source of truth instead of two independently generated
// client-local numbers.
//
// Fields:
//  ID           – UUID primary key.
//  OrdererID    – user who requested the delivery.
//  DelivererID  – user whose availability row was claimed.
//  HallID       – hall the claim was made against.
//  DesiredOrder – copied from the claimed availability row.
//  OrdererPIN   – 4-digit PIN shown to the orderer.
//  DelivererPIN – 4-digit PIN shown to the deliverer.
//  OrdererOK    – orderer has entered the deliverer's PIN correctly.
//  DelivererOK  – deliverer has entered the orderer's PIN correctly.
//  Status       – PENDING or CONFIRMED.
//  ExpiresAt    – verification deadline; expired matches reject with 410.
//  CreatedAt    – claim timestamp.
type Match struct {
	ID           string    // matches.id (CHAR(36) UUID)
	OrdererID    string    // matches.orderer_id
	DelivererID  string    // matches.deliverer_id
	HallID       string    // matches.hall_id
	DesiredOrder string    // matches.desired_order
	OrdererPIN   string    // matches.orderer_pin
	DelivererPIN string    // matches.deliverer_pin
	OrdererOK    bool      // matches.orderer_ok
	DelivererOK  bool      // matches.deliverer_ok
	Status       string    // matches.status
	ExpiresAt    time.Time // matches.expires_at
	CreatedAt    time.Time // matches.created_at
}
