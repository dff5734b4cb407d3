package validation

import "strconv"

// StallNames lists the stall labels of a station: "1A".."NA" then "1B".."NB"
// where N is stalls/2.
func StallNames(stalls int) []string {
	n := stalls / 2
	if n <= 0 {
		return []string{}
	}
	names := make([]string, 0, 2*n)
	for _, side := range []string{"A", "B"} {
		for i := 1; i <= n; i++ {
			names = append(names, strconv.Itoa(i)+side)
		}
	}
	return names
}
