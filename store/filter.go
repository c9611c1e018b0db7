package store

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// dateWindow returns the [00:00:00, next midnight) bounds of a
// YYYY-MM-DD calendar date. Boundaries are timezone-naive (UTC).
func dateWindow(date string) (time.Time, time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}
	return day, day.Add(24 * time.Hour), nil
}

// buildMatch turns the direct (pre-lookup) parts of a certificate
// filter into a Mongo match document.
func buildMatch(f CertificateFilter) (bson.M, error) {
	match := bson.M{}
	if f.UniqueID != "" {
		match["uniqueId"] = f.UniqueID
	}
	if f.Date != "" {
		start, end, err := dateWindow(f.Date)
		if err != nil {
			return nil, err
		}
		match["issuedAt"] = bson.M{"$gte": start, "$lt": end}
	}
	return match, nil
}

// ownerNameMatch builds the post-lookup match on the resolved owner
// name. The needle is quoted so user input is never a pattern.
func ownerNameMatch(needle string) bson.M {
	return bson.M{"ownerName": bson.M{
		"$regex":   regexp.QuoteMeta(needle),
		"$options": "i",
	}}
}
