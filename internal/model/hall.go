package model

// Hall describes one campus dining hall in the fixed pickup catalog.  The
// catalog is compiled in rather than stored: the set of halls changes a few
// times a decade and the mobile client ships the same list.  Opening hours
// are expressed as hours of the day in campus-local time; OpenHour ==
// CloseHour means the hall is treated as always closed.
type Hall struct {
	ID           string // stable string key, e.g. "rendezvous"
	Name         string // display name
	Neighborhood string // campus area shown under the name
	OpenHour     int    // first hour the hall is open (0-23)
	CloseHour    int    // hour the hall closes; may be past midnight (e.g. 26 = 2am)
}

// halls is the fixed pickup catalog, ordered the way the client renders it.
var halls = []Hall{
	{ID: "epicuria-ackerman", Name: "Epic at Ackerman", Neighborhood: "Ackerman Union", OpenHour: 11, CloseHour: 21},
	{ID: "bruin-cafe", Name: "Bruin Café", Neighborhood: "Sproul Hall", OpenHour: 7, CloseHour: 23},
	{ID: "rendezvous", Name: "Rendezvous", Neighborhood: "Rieber Terrace", OpenHour: 17, CloseHour: 26},
	{ID: "hedrick-study", Name: "The Study at Hedrick", Neighborhood: "Hedrick Hall", OpenHour: 7, CloseHour: 26},
}

// Halls returns the pickup catalog.  Callers must not mutate the slice.
func Halls() []Hall { return halls }

// HallByID looks up a hall by its string key.  The second return value
// reports whether the id names a recognized hall.  Note that availability
// rows do not enforce hall membership — an unrecognized hall_id is stored
// as-is, since the mobile client only offers catalog halls anyway.
func HallByID(id string) (Hall, bool) {
	for _, h := range halls {
		if h.ID == id {
			return h, true
		}
	}
	return Hall{}, false
}

// OpenAt reports whether the hall is open at the given hour of day (0-23).
// Hours past midnight wrap: a CloseHour of 26 keeps the hall open through
// 01:59.
func (h Hall) OpenAt(hour int) bool {
	if h.OpenHour == h.CloseHour {
		return false
	}
	if hour >= h.OpenHour && hour < h.CloseHour {
		return true
	}
	// Wrapped portion for halls that close after midnight.
	return h.CloseHour > 24 && hour < h.CloseHour-24
}
