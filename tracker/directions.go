package tracker

import "strconv"

// Rider-facing direction labels per line family, indexed by direction code
// (0 = south/east stop points, 1 = north/west stop points). Labels follow
// platform signage conventions rather than compass headings.
var directionLabels = map[string][2]string{
	"1": {"Downtown", "Uptown"},
	"2": {"Downtown", "Uptown"},
	"3": {"Downtown", "Uptown"},
	"4": {"Downtown", "Uptown"},
	"5": {"Downtown", "Uptown"},
	"6": {"Downtown", "Uptown"},
	"7": {"Downtown", "Uptown"},

	"A": {"Downtown", "Uptown"},
	"C": {"Downtown", "Uptown"},
	"E": {"Downtown", "Uptown"},

	"B": {"South", "North"},
	"D": {"South", "North"},
	"F": {"South", "North"},
	"M": {"South", "North"},

	"N": {"Eastbound", "Westbound"},
	"Q": {"Eastbound", "Westbound"},
	"R": {"Eastbound", "Westbound"},
	"W": {"Eastbound", "Westbound"},
	"G": {"Eastbound", "Westbound"},
	"L": {"Eastbound", "Westbound"},

	"J": {"Jamaica", "Broad Street"},
	"Z": {"Jamaica", "Broad Street"},

	"S":   {"Queensbound", "Manhattanbound"},
	"SIR": {"Tompkinsville", "St. George"},
}

// DirectionLabel returns the rider-facing label for a line's direction.
// Express variants ("6X", "7X") fall back to their base line; unknown lines
// get a generic but non-empty label so a lookup never fails.
func DirectionLabel(line string, direction int) string {
	idx := 0
	if direction == 1 {
		idx = 1
	}
	if labels, ok := directionLabels[line]; ok {
		return labels[idx]
	}
	if len(line) > 1 {
		if labels, ok := directionLabels[line[:1]]; ok {
			return labels[idx]
		}
	}
	return "Direction " + strconv.Itoa(idx)
}
