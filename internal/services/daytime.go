package services

import "time"

// Tokyo is the fixed UTC+9 zone daily totals are computed in. It is a fixed
// offset so the result does not depend on the host's tzdata.
var Tokyo = time.FixedZone("UTC+9", 9*60*60)

// DayStart returns local midnight (UTC+9) of the day containing t.
func DayStart(t time.Time) time.Time {
	lt := t.In(Tokyo)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, Tokyo)
}
