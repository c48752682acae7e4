package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Stempelkarte lines vary across invoice layouts; match the known shapes in
// order of specificity.
var stampCardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)davon mit Stempelkarte bezahlt\s*\*\*\s*:\s*(\d+)\s+Bestellung[^€]*€\s*([\d,\.]+)`),
	regexp.MustCompile(`(?i)davon mit Stempelkarte bezahlt\s*\*\*\s+(\d+)\s+Bestellung[^€]*€\s*([\d,\.]+)`),
	regexp.MustCompile(`(?i)Stempelkarte bezahlt\s*\*\*\s*:\s*(\d+)\s+Bestellung[^€]*€\s*([\d,\.]+)`),
}

// StampCard is the loyalty-program figure pair printed on some invoices.
type StampCard struct {
	Orders int
	Amount float64
}

// ParseGermanDecimal converts "1.234,56" style figures to a float64.
func ParseGermanDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// StampCardFromText extracts the stamp-card order count and amount from raw
// PDF text. ok is false when no pattern matches or the figures do not parse.
func StampCardFromText(rawText string) (StampCard, bool) {
	if rawText == "" {
		return StampCard{}, false
	}
	for _, re := range stampCardPatterns {
		m := re.FindStringSubmatch(rawText)
		if m == nil {
			continue
		}
		orders, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		amount, err := ParseGermanDecimal(m[2])
		if err != nil {
			continue
		}
		return StampCard{Orders: orders, Amount: amount}, true
	}
	return StampCard{}, false
}
