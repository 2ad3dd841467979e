package util

import (
	"regexp"
	"strconv"
	"strings"
)

func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

var (
	// An amount with the period suffix that directly follows it, if any.
	amountRegex      = regexp.MustCompile(`(?i)(£\s*)?(\d[\d,]*)\s*(pcm|per calendar month|per month|a month|monthly|pm|pw|p/w|per week|a week|weekly)?\b`)
	bedroomsRegex    = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|bedroom|bedrooms|beds)\b`)
	firstNumberRegex = regexp.MustCompile(`\d+`)
)

// WeeksPerMonth converts a weekly rent to the monthly figure sites display.
const WeeksPerMonth = 4

// ParsePrice extracts a monthly price in whole pounds from a display string
// such as "£1,250 pcm" or "£300 pw". When the text quotes both figures, as in
// "£1,250 pcm (£288 pw)", the monthly one is used. Only an amount that itself
// carries a weekly suffix is converted. It returns nil when no amount can be
// found.
func ParsePrice(text string) *int {
	v, weekly, ok := parseAmount(text)
	if !ok {
		return nil
	}
	if weekly {
		v *= WeeksPerMonth
	}
	return &v
}

// IsWeeklyPrice reports whether the amount ParsePrice picks from text is
// quoted per week.
func IsWeeklyPrice(text string) bool {
	_, weekly, ok := parseAmount(text)
	return ok && weekly
}

// parseAmount picks the first monthly amount, else the first amount in
// pounds, else the first bare number.
func parseAmount(text string) (value int, weekly, ok bool) {
	var pick []string
	for _, m := range amountRegex.FindAllStringSubmatch(text, -1) {
		if periodOf(m[3]) == periodMonthly {
			pick = m
			break
		}
		if pick == nil || (pick[1] == "" && m[1] != "") {
			pick = m
		}
	}
	if pick == nil {
		return 0, false, false
	}
	v, err := strconv.Atoi(strings.ReplaceAll(pick[2], ",", ""))
	if err != nil {
		return 0, false, false
	}
	return v, periodOf(pick[3]) == periodWeekly, true
}

type period int

const (
	periodNone period = iota
	periodMonthly
	periodWeekly
)

func periodOf(suffix string) period {
	switch strings.ToLower(suffix) {
	case "":
		return periodNone
	case "pw", "p/w", "per week", "a week", "weekly":
		return periodWeekly
	default:
		return periodMonthly
	}
}

// ParseBedrooms extracts a bedroom count from text like "2 bed flat".
// A bare number is accepted when requireLabel is false.
func ParseBedrooms(text string, requireLabel bool) *int {
	if m := bedroomsRegex.FindStringSubmatch(text); m != nil {
		v := SafeAtoi(m[1])
		return &v
	}
	if requireLabel {
		return nil
	}
	if s := firstNumberRegex.FindString(text); s != "" {
		v := SafeAtoi(s)
		return &v
	}
	return nil
}

// CollapseSpace trims s and folds internal whitespace runs to single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
