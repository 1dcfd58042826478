package keywords

import "strings"

// Market is a parsed "City,State,Country" market string.
type Market struct {
	City    string
	State   string
	Country string
}

// ParseMarket splits a market string into its components. Missing parts are
// left empty.
func ParseMarket(s string) Market {
	parts := strings.Split(s, ",")
	m := Market{}
	if len(parts) > 0 {
		m.City = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		m.State = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		m.Country = strings.TrimSpace(parts[2])
	}
	return m
}

// ParseMarkets parses a list of market strings, skipping those with no city.
func ParseMarkets(locations []string) []Market {
	var out []Market
	for _, loc := range locations {
		m := ParseMarket(loc)
		if m.City != "" {
			out = append(out, m)
		}
	}
	return out
}

// stateAbbrevs maps lowercase US state names to their 2-letter abbreviations.
var stateAbbrevs = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

// StateAbbrev returns the 2-letter abbreviation for a state. Inputs that are
// already 2 letters are uppercased and returned as-is.
func (m Market) StateAbbrev() string {
	s := strings.TrimSpace(m.State)
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	if abbr, ok := stateAbbrevs[strings.ToLower(s)]; ok {
		return abbr
	}
	return ""
}

// KnownStateAbbrev reports whether s is a US state or DC abbreviation.
func KnownStateAbbrev(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, abbr := range stateAbbrevs {
		if abbr == s {
			return true
		}
	}
	return false
}

// locationWords collects the lowercase city/state word tokens (length > 2)
// plus each state's 2-letter abbreviation, for stripping from candidate terms.
func locationWords(markets []Market) map[string]bool {
	words := make(map[string]bool)
	for _, m := range markets {
		for _, tok := range strings.Fields(strings.ToLower(m.City)) {
			if len(tok) > 2 {
				words[tok] = true
			}
		}
		for _, tok := range strings.Fields(strings.ToLower(m.State)) {
			if len(tok) > 2 {
				words[tok] = true
			}
		}
		if abbr := m.StateAbbrev(); abbr != "" {
			words[strings.ToLower(abbr)] = true
		}
	}
	return words
}
