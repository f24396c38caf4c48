package slots

// slot kinds and their demand multipliers, keyed by departure time of day.
// Night departures carry the steepest premium, evening peak next.
var kindTable = []struct {
	from string // inclusive
	kind string
	mult float64
}{
	{"00:00", "night", 1.5},
	{"05:30", "morning", 1.0},
	{"08:30", "morning-peak", 1.2},
	{"11:30", "midday", 1.1},
	{"14:30", "afternoon", 1.0},
	{"17:30", "evening-peak", 1.3},
	{"20:30", "night", 1.5},
}

// Classify maps a departure clock to its slot kind and fare multiplier.
// Unparseable clocks fall back to the neutral multiplier.
func Classify(start string) (string, float64) {
	hh, mm, err := parseClock(start)
	if err != nil {
		return "unknown", 1.0
	}
	minutes := hh*60 + mm
	kind, mult := kindTable[0].kind, kindTable[0].mult
	for _, e := range kindTable {
		fh, fm, _ := parseClock(e.from)
		if minutes >= fh*60+fm {
			kind, mult = e.kind, e.mult
		}
	}
	return kind, mult
}
