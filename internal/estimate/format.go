package estimate

import (
	"math"
	"strconv"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with a binary unit and up to two
// decimals, e.g. "1.5 MB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	pow := 0
	for pow < len(byteUnits)-1 && bytes >= int64(1)<<(10*(pow+1)) {
		pow++
	}
	value := float64(bytes) / float64(int64(1)<<(10*pow))
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + " " + byteUnits[pow]
}

// FormatCount renders an integer with thousands separators
func FormatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
