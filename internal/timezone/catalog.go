package timezone

import (
	"errors"
	"fmt"
	"time"

	// Embed the zone database so label resolution does not depend on the host image.
	_ "time/tzdata"
)

// ErrNotFound is returned when a label is not part of the catalog.
var ErrNotFound = errors.New("timezone not found")

// Entry pairs a display label with the IANA zone it resolves to.
type Entry struct {
	Label  string
	IANAID string
}

// zone is the raw table shape; labels are derived as "<name> (<abbreviation>)".
type zone struct {
	abbreviation string
	name         string
	iana         string
}

var defaultZones = []zone{
	{"ET", "Eastern Time", "America/New_York"},
	{"CT", "Central Time", "America/Chicago"},
	{"MT", "Mountain Time", "America/Denver"},
	{"PT", "Pacific Time", "America/Los_Angeles"},
	{"AKT", "Alaska Time", "America/Anchorage"},
	{"HT", "Hawaii Time", "Pacific/Honolulu"},
	{"GMT", "Greenwich Mean Time", "Europe/London"},
	{"CET", "Central European Time", "Europe/Paris"},
	{"EET", "Eastern European Time", "Europe/Athens"},
	{"IST", "India Standard Time", "Asia/Kolkata"},
	{"CST", "China Standard Time", "Asia/Shanghai"},
	{"JST", "Japan Standard Time", "Asia/Tokyo"},
	{"KST", "Korea Standard Time", "Asia/Seoul"},
	{"SGT", "Singapore Time", "Asia/Singapore"},
	{"AEST", "Australian Eastern Time", "Australia/Sydney"},
	{"ACST", "Australian Central Time", "Australia/Adelaide"},
	{"AWST", "Australian Western Time", "Australia/Perth"},
	{"UTC", "Coordinated Universal Time", "UTC"},
	{"BRT", "Brazil Time", "America/Sao_Paulo"},
	{"ART", "Argentina Time", "America/Argentina/Buenos_Aires"},
	{"NZST", "New Zealand Time", "Pacific/Auckland"},
	{"MSK", "Moscow Time", "Europe/Moscow"},
	{"GST", "Gulf Standard Time", "Asia/Dubai"},
	{"PKT", "Pakistan Time", "Asia/Karachi"},
	{"WIB", "Western Indonesia Time", "Asia/Jakarta"},
}

// DefaultEntries returns the built-in label table in display order.
func DefaultEntries() []Entry {
	out := make([]Entry, 0, len(defaultZones))
	for _, z := range defaultZones {
		out = append(out, Entry{
			Label:  fmt.Sprintf("%s (%s)", z.name, z.abbreviation),
			IANAID: z.iana,
		})
	}
	return out
}

// Catalog is a read-only label -> zone lookup built once at startup.
// It is safe for concurrent use because nothing mutates it after NewCatalog returns.
type Catalog struct {
	labels    []string
	ianaIDs   map[string]string
	locations map[string]*time.Location
}

// NewCatalog builds a catalog from entries, loading every zone up front so a
// missing zone fails at startup instead of on the first request.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		labels:    make([]string, 0, len(entries)),
		ianaIDs:   make(map[string]string, len(entries)),
		locations: make(map[string]*time.Location, len(entries)),
	}
	for _, e := range entries {
		if e.Label == "" || e.IANAID == "" {
			return nil, fmt.Errorf("timezone entry %q: label and iana id required", e.Label)
		}
		if _, dup := c.ianaIDs[e.Label]; dup {
			return nil, fmt.Errorf("timezone entry %q: duplicate label", e.Label)
		}
		loc, err := time.LoadLocation(e.IANAID)
		if err != nil {
			return nil, fmt.Errorf("timezone entry %q: load %s: %w", e.Label, e.IANAID, err)
		}
		c.labels = append(c.labels, e.Label)
		c.ianaIDs[e.Label] = e.IANAID
		c.locations[e.Label] = loc
	}
	return c, nil
}

// Default returns a catalog over DefaultEntries.
func Default() (*Catalog, error) {
	return NewCatalog(DefaultEntries())
}

// Resolve maps a label to its IANA id. Matching is exact.
func (c *Catalog) Resolve(label string) (string, error) {
	id, ok := c.ianaIDs[label]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	return id, nil
}

// Location returns the loaded zone for a label.
func (c *Catalog) Location(label string) (*time.Location, error) {
	loc, ok := c.locations[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	return loc, nil
}

// Labels returns all labels in table order. The slice is a copy.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}
