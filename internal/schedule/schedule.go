package schedule

import "time"

const dateLayout = "2006-01-02"

// IsDatePast reports whether the given calendar date is before today in
// the business timezone.
func IsDatePast(date string, loc *time.Location, now time.Time) (bool, error) {
	parsed, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return false, err
	}
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	return parsed.Before(today), nil
}

// ParseClockToMinutes converts a HH:MM string to minutes since midnight.
func ParseClockToMinutes(clock string) (int, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// IsSlotPast reports whether the given date and HH:MM time is already
// behind now in the business timezone.
func IsSlotPast(date, clock string, loc *time.Location, now time.Time) (bool, error) {
	parsed, err := time.ParseInLocation(dateLayout+" 15:04", date+" "+clock, loc)
	if err != nil {
		return false, err
	}
	return parsed.Before(now.In(loc)), nil
}
