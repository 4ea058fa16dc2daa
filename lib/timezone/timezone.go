package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
}

// force timezone to be JST because ranking buckets roll over on the
// upstream site's midnight, not on whatever timezone the server
// happens to run in
func Now() time.Time {
	return time.Now().In(Location)
}

// the latest day a ranking exists for; a day's ranking is not
// published until that day is over
func Yesterday() time.Time {
	y := Now().AddDate(0, 0, -1)
	return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, Location)
}

// ClampToYesterday parses an ISO date and caps it at yesterday, falling
// back to yesterday entirely when the input does not parse.
func ClampToYesterday(date string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", date, Location)
	if err != nil {
		return Yesterday()
	}
	if y := Yesterday(); d.After(y) {
		return y
	}
	return d
}
