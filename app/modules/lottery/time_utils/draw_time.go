package lotterytime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var compactClock = regexp.MustCompile(`(\d{1,2})(\d{2})(am|pm)`)

// Parser turns user supplied draw times into UTC instants. It accepts
// RFC 3339, unix seconds, or English phrases such as "tomorrow at 8pm".
type Parser struct {
	TimezoneMap map[string]string
	when        *when.Parser
}

// NewParser creates a Parser with the US timezone abbreviations mapped.
func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{
		TimezoneMap: map[string]string{
			"UTC": "UTC",
			"PST": "America/Los_Angeles",
			"PDT": "America/Los_Angeles",
			"MST": "America/Denver",
			"MDT": "America/Denver",
			"CST": "America/Chicago",
			"CDT": "America/Chicago",
			"EST": "America/New_York",
			"EDT": "America/New_York",
		},
		when: w,
	}
}

// Location resolves an abbreviation or IANA name. Empty means UTC.
func (p *Parser) Location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	if full, ok := p.TimezoneMap[strings.ToUpper(tz)]; ok {
		tz = full
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %s", tz)
	}
	return loc, nil
}

// Parse resolves input relative to now in timezone tz. Phrases are read in
// tz; absolute forms carry their own zone.
func (p *Parser) Parse(input, tz string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, lotterydomain.ErrInvalidDrawTime
	}
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.UTC(), nil
	}
	if secs, err := strconv.ParseInt(input, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	loc, err := p.Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	normalized := strings.ToLower(input)
	normalized = strings.ReplaceAll(normalized, "today ", "today at ")
	normalized = compactClock.ReplaceAllString(normalized, "$1:$2 $3")

	r, err := p.when.Parse(normalized, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse draw time %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize draw time %q", input)
	}
	return r.Time.UTC(), nil
}
