package handlers

import "time"

// Europe/Berlin for all display formatting
var tzBerlin *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		// fallback to UTC if the tzdata is missing
		tzBerlin = time.UTC
		return
	}
	tzBerlin = loc
}

// today returns the current date truncated to midnight, for the
// end-date filter on the public course list.
func today() time.Time {
	now := time.Now().In(tzBerlin)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// parseDate parses an ISO form date, returning nil on empty input.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
