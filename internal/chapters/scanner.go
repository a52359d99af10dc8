package chapters

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// timestampPattern accepts H:MM:SS and M:SS, optionally wrapped in one
// matching bracket pair. Bracketed forms are listed first so a complete
// pair wins over the bare token inside it.
var timestampPattern = regexp.MustCompile(
	`\((\d{1,2}):(\d{2})(?::(\d{2}))?\)` +
		`|\[(\d{1,2}):(\d{2})(?::(\d{2}))?\]` +
		`|\{(\d{1,2}):(\d{2})(?::(\d{2}))?\}` +
		`|(\d{1,2}):(\d{2})(?::(\d{2}))?`,
)

// groupsPerForm is the submatch count of each alternative (first, second, optional third field).
const groupsPerForm = 3

// Scan yields every timestamp in line, left to right and non-overlapping.
// The sequence is lazy and may be ranged over more than once.
//
// Minutes and seconds are not range-checked: "99:99" decodes to 99 minutes
// and 99 seconds.
func Scan(line string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		pos := 0
		for pos < len(line) {
			loc := timestampPattern.FindStringSubmatchIndex(line[pos:])
			if loc == nil {
				return
			}
			if !yield(decode(line, pos, loc)) {
				return
			}
			pos += loc[1]
		}
	}
}

// decode builds a Match from submatch indexes relative to line[offset:].
func decode(line string, offset int, loc []int) Match {
	m := Match{
		Start: offset + loc[0],
		End:   offset + loc[1],
	}
	m.Text = line[m.Start:m.End]

	for form := range 4 {
		base := 2 + form*groupsPerForm*2
		if loc[base] < 0 {
			continue
		}
		field := func(i int) (int, bool) {
			lo, hi := loc[base+i*2], loc[base+i*2+1]
			if lo < 0 {
				return 0, false
			}
			n, _ := strconv.Atoi(line[offset+lo : offset+hi]) // digits only
			return n, true
		}

		first, _ := field(0)
		second, _ := field(1)
		if third, ok := field(2); ok {
			m.Hours, m.Minutes, m.Seconds = first, second, third
		} else {
			m.Minutes, m.Seconds = first, second
		}
		break
	}
	return m
}

// TotalSeconds is the offset the timestamp denotes.
func (m Match) TotalSeconds() int {
	return m.Hours*3600 + m.Minutes*60 + m.Seconds
}

// Display is the matched text with its bracket pair removed.
func (m Match) Display() string {
	return strings.Trim(m.Text, "()[]{}")
}
