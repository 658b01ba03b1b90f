package importer

import "strings"

// EdgeBandingCode combines the four edge names into side letters in T, B, L, R order.
// A side counts as banded when its edge name is set and is not a "none" marker.
func EdgeBandingCode(top, bottom, left, right string) string {
	var b strings.Builder
	for _, side := range []struct {
		letter byte
		name   string
	}{
		{'T', top},
		{'B', bottom},
		{'L', left},
		{'R', right},
	} {
		if isBanded(side.name) {
			b.WriteByte(side.letter)
		}
	}
	return b.String()
}

// EdgeBandingSides counts banded long (top/bottom) and short (left/right) edges
func EdgeBandingSides(code string) (long, short int) {
	for _, c := range code {
		switch c {
		case 'T', 'B':
			long++
		case 'L', 'R':
			short++
		}
	}
	return long, short
}

func isBanded(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "no", "0", "-":
		return false
	}
	return true
}
