package model

// SessionFilter narrows ListSessions results. Zero value means no filtering.
type SessionFilter struct {
	// Open selects only open (true) or only closed (false) sessions when set.
	Open *bool
	// Plate matches the normalized plate exactly.
	Plate string
	// Search matches a case-insensitive substring of the plate or session ID.
	Search string
	// Unpaid selects open sessions that have not been settled.
	Unpaid bool

	Limit  int
	Offset int
}

// Stats is the dashboard summary for the facility.
type Stats struct {
	Parked            int   `json:"parked"`
	Capacity          int   `json:"capacity"`
	AvailableSpaces   int   `json:"available_spaces"`
	TodayRevenueCents int64 `json:"today_revenue_cents"`
	UnpaidSessions    int   `json:"unpaid_sessions"`
}
