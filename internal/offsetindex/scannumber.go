package offsetindex

import (
	"regexp"
	"strconv"
	"strings"
)

// Keys that carry a scan number in the common nativeID formats:
// Thermo/Bruker/Waters "scan=", Agilent "scanId=", generic "spectrum=".
var scanKey = regexp.MustCompile(`(?:^|\s)(?:scan|scanId|spectrum)=(\d+)`)

// ScanNumber derives the vendor scan number from a native id. This is a
// heuristic; many nativeID formats (e.g. WIFF) don't carry one.
func ScanNumber(nativeID string) (int, bool) {
	if m := scanKey.FindStringSubmatch(nativeID); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
		return 0, false
	}
	// "scan number only" nativeID format
	if n, err := strconv.Atoi(strings.TrimSpace(nativeID)); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}
