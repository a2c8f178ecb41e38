package gtfsrt

import (
	"math"
	"strings"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Predictions further in the past than this are dropped as stale.
const staleGraceSeconds = 60

// ParseFeed decodes one feed source's binary payload into Train and Alert
// records. Malformed individual entities are skipped and counted; a payload
// that does not decode at all is an error for the whole source.
func ParseFeed(data []byte, now time.Time) (trains []Train, alerts []Alert, skipped int, err error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(data, &fm); err != nil {
		return nil, nil, 0, err
	}
	nowEpoch := now.Unix()
	for _, e := range fm.Entity {
		switch {
		case e.TripUpdate != nil:
			got, bad := parseTripUpdate(e.TripUpdate, nowEpoch)
			trains = append(trains, got...)
			skipped += bad
		case e.Alert != nil:
			got, ok := parseAlert(e.Alert)
			if !ok {
				skipped++
				continue
			}
			alerts = append(alerts, got...)
		}
	}
	return trains, alerts, skipped, nil
}

func parseTripUpdate(tu *gtfsrtpb.TripUpdate, nowEpoch int64) ([]Train, int) {
	if tu.Trip == nil || tu.Trip.RouteId == nil {
		return nil, 1
	}
	routeID := *tu.Trip.RouteId
	tripID := ""
	if tu.Trip.TripId != nil {
		tripID = *tu.Trip.TripId
	}
	var trains []Train
	skipped := 0
	for _, stu := range tu.StopTimeUpdate {
		if stu.StopId == nil {
			skipped++
			continue
		}
		stopID := *stu.StopId
		var arrival int64
		if stu.Arrival != nil && stu.Arrival.Time != nil {
			arrival = *stu.Arrival.Time
		} else if stu.Departure != nil && stu.Departure.Time != nil {
			arrival = *stu.Departure.Time
		} else {
			skipped++
			continue
		}
		secondsAway := arrival - nowEpoch
		if secondsAway < -staleGraceSeconds {
			continue
		}
		minutes := 0
		if secondsAway > 0 {
			minutes = int(math.Ceil(float64(secondsAway) / 60))
		}
		trains = append(trains, Train{
			Line:        routeID,
			Direction:   directionFromStopID(stopID),
			StopID:      stopID,
			ArrivalTime: arrival,
			Minutes:     minutes,
			// trip_headsign is not carried by the realtime feed
			Destination: routeID + " Train",
			TripID:      tripID,
		})
	}
	return trains, skipped
}

// directionFromStopID reads the platform suffix upstream appends to stop ids
// ("127N"/"127S"): trailing N is direction 1, everything else direction 0.
func directionFromStopID(stopID string) int {
	if strings.HasSuffix(strings.ToUpper(stopID), "N") {
		return 1
	}
	return 0
}

// BaseStopID strips a trailing direction letter from a platform id.
func BaseStopID(stopID string) string {
	if stopID == "" {
		return stopID
	}
	last := stopID[len(stopID)-1]
	if (last >= 'A' && last <= 'Z') || (last >= 'a' && last <= 'z') {
		return stopID[:len(stopID)-1]
	}
	return stopID
}

func parseAlert(a *gtfsrtpb.Alert) ([]Alert, bool) {
	header := translatedText(a.HeaderText)
	description := translatedText(a.DescriptionText)
	message := strings.TrimSpace(strings.TrimSpace(header) + " " + strings.TrimSpace(description))
	if message == "" {
		return nil, false
	}
	severity := "WARNING"
	if a.SeverityLevel != nil {
		severity = a.SeverityLevel.String()
	}
	cause := ""
	if a.Cause != nil {
		cause = a.Cause.String()
	}
	var alerts []Alert
	seen := map[string]struct{}{}
	for _, ie := range a.InformedEntity {
		routeID := ""
		if ie.RouteId != nil {
			routeID = *ie.RouteId
		}
		if routeID == "" && ie.Trip != nil && ie.Trip.RouteId != nil {
			routeID = *ie.Trip.RouteId
		}
		if routeID == "" {
			continue
		}
		if _, dup := seen[routeID]; dup {
			continue
		}
		seen[routeID] = struct{}{}
		alerts = append(alerts, Alert{
			Line:     routeID,
			Message:  message,
			Severity: severity,
			Cause:    cause,
		})
	}
	return alerts, len(alerts) > 0
}

func translatedText(ts *gtfsrtpb.TranslatedString) string {
	if ts == nil || len(ts.Translation) == 0 {
		return ""
	}
	if ts.Translation[0].Text != nil {
		return *ts.Translation[0].Text
	}
	return ""
}
