package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

var gtStockRe = regexp.MustCompile(`^>\s*(\d+)$`)

// ParseStock normalizes a raw stock cell into an integer quantity.
// Blank cells mean "no stock information" (present=false), not zero.
// A "greater than" marker like ">10" is treated as exactly the threshold —
// a deliberate simplification rather than modelling open-ended ranges.
// Decimals are truncated toward zero. Anything else is an error.
func ParseStock(cell string) (qty int, present bool, err error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false, nil
	}

	if m := gtStockRe.FindStringSubmatch(s); m != nil {
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			return 0, false, eris.Wrapf(convErr, "catalog: stock threshold %q", s)
		}
		return n, true, nil
	}

	if n, convErr := strconv.Atoi(s); convErr == nil {
		return n, true, nil
	}

	f, convErr := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if convErr != nil {
		return 0, false, eris.Errorf("catalog: invalid stock value %q", s)
	}
	return int(f), true, nil // int() truncates toward zero
}

var priceStripRe = regexp.MustCompile(`[€$\s]`)

// ParsePrice normalizes a raw price cell into a decimal.
// Handles European formats like "4.499,95 €" and plain "1299.50".
// Blank or dash-only cells mean "no price" (present=false).
func ParsePrice(cell string) (price decimal.Decimal, present bool, err error) {
	s := priceStripRe.ReplaceAllString(strings.TrimSpace(cell), "")
	if s == "" || strings.Trim(s, "-") == "" {
		return decimal.Zero, false, nil
	}

	if strings.Contains(s, ",") {
		// Comma is the decimal separator; dots are thousands.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if strings.Count(s, ".") > 1 {
		// Multiple dots with no comma: all but the last are thousands.
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	d, convErr := decimal.NewFromString(s)
	if convErr != nil {
		return decimal.Zero, false, eris.Errorf("catalog: invalid price value %q", cell)
	}
	return d, true, nil
}

// CleanSKU trims the cell and strips the ".0" suffix spreadsheet tools
// append to numeric identifiers.
func CleanSKU(cell string) string {
	s := strings.TrimSpace(cell)
	if rest, ok := strings.CutSuffix(s, ".0"); ok && isDigits(rest) {
		return rest
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
