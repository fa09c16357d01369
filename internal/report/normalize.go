package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dyike/StockLens/config"
)

// SymbolPolicy decides how a requested symbol is rewritten before fetching.
type SymbolPolicy string

const (
	// PolicyPassthrough only trims surrounding whitespace.
	PolicyPassthrough SymbolPolicy = config.SymbolPolicyPassthrough
	// PolicyStripSuffix also drops a trailing exchange suffix such as ".HK".
	// Only the suffixes in exchangeSuffixes are dropped, so share classes
	// like BRK.B keep their class letter.
	PolicyStripSuffix SymbolPolicy = config.SymbolPolicyStripSuffix
)

// ParsePolicy maps a config value to a policy.
func ParsePolicy(s string) (SymbolPolicy, error) {
	switch SymbolPolicy(s) {
	case PolicyPassthrough, "":
		return PolicyPassthrough, nil
	case PolicyStripSuffix:
		return PolicyStripSuffix, nil
	}
	return "", fmt.Errorf("unknown symbol policy %q", s)
}

var dottedSuffix = regexp.MustCompile(`^(.+)\.([A-Za-z]{1,4})$`)

// exchangeSuffixes are the market suffixes used by Yahoo Finance and Longport.
var exchangeSuffixes = map[string]bool{
	"US": true, "HK": true, "SH": true, "SZ": true, "SS": true, "SG": true,
	"NS": true, "BO": true, "L": true, "T": true, "TO": true, "V": true,
	"AX": true, "NZ": true, "DE": true, "F": true, "PA": true, "AS": true,
	"MI": true, "MC": true, "SW": true, "ST": true, "OL": true, "CO": true,
	"HE": true, "BR": true, "LS": true, "VI": true, "IR": true, "KS": true,
	"KQ": true, "TW": true, "TWO": true, "SI": true, "JK": true, "BK": true,
	"KL": true, "SA": true, "MX": true, "JO": true,
}

// Normalize applies policy to raw. Case is never changed, so index symbols
// such as ^DJI and lower-case tickers reach the source as written.
func Normalize(policy SymbolPolicy, raw string) string {
	symbol := strings.TrimSpace(raw)
	if policy != PolicyStripSuffix {
		return symbol
	}
	if m := dottedSuffix.FindStringSubmatch(symbol); m != nil && exchangeSuffixes[strings.ToUpper(m[2])] {
		return m[1]
	}
	return symbol
}
