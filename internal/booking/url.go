package booking

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const usDateLayout = "01/02/2006"

// URLConfig holds the fixed parts of the reservation deep link.
type URLConfig struct {
	Host       string
	PropertyID int
	Domain     string
	LanguageID int
	Anchor     string
}

// DefaultURLConfig points at the hotel's booking engine.
func DefaultURLConfig() URLConfig {
	return URLConfig{
		Host:       "bookings.travelclick.com",
		PropertyID: 114738,
		Domain:     "www.cullinanhotels.com",
		LanguageID: 1,
		Anchor:     "guestsandrooms",
	}
}

// URLParams is the immutable view of a complete State used for the link.
type URLParams struct {
	Adults    int
	CheckIn   time.Time
	CheckOut  time.Time
	Rooms     int
	Children  int
	ChildAges []int
}

var ErrIncompleteState = errors.New("booking state is incomplete")

// ParamsFromState converts a complete state. Any gap or inconsistency is
// reported as an error.
func ParamsFromState(s State) (URLParams, error) {
	if missing := s.Missing(); len(missing) > 0 {
		return URLParams{}, fmt.Errorf("%w: missing %v", ErrIncompleteState, missing)
	}
	in, err := time.Parse(isoLayout, s.CheckIn)
	if err != nil {
		return URLParams{}, fmt.Errorf("invalid check-in date %q: %w", s.CheckIn, err)
	}
	out, err := time.Parse(isoLayout, s.CheckOut)
	if err != nil {
		return URLParams{}, fmt.Errorf("invalid check-out date %q: %w", s.CheckOut, err)
	}
	if !out.After(in) {
		return URLParams{}, fmt.Errorf("check-out %s is not after check-in %s", s.CheckOut, s.CheckIn)
	}
	if *s.Children > 0 && len(s.ChildAges) != *s.Children {
		return URLParams{}, fmt.Errorf("child count %d does not match %d ages", *s.Children, len(s.ChildAges))
	}

	p := URLParams{
		Adults:   *s.Adults,
		CheckIn:  in,
		CheckOut: out,
		Rooms:    *s.Rooms,
		Children: *s.Children,
	}
	if p.Children > 0 {
		p.ChildAges = append([]int{}, s.ChildAges...)
	}
	return p, nil
}

// URLBuilder renders reservation links for one property.
type URLBuilder struct {
	cfg URLConfig
}

func NewURLBuilder(cfg URLConfig) *URLBuilder {
	return &URLBuilder{cfg: cfg}
}

// Build renders the link with a fixed parameter order. Children parameters
// are only present when there are children.
func (b *URLBuilder) Build(p URLParams) string {
	params := [][2]string{
		{"adults", strconv.Itoa(p.Adults)},
		{"datein", p.CheckIn.Format(usDateLayout)},
		{"dateout", p.CheckOut.Format(usDateLayout)},
		{"rooms", strconv.Itoa(p.Rooms)},
		{"domain", b.cfg.Domain},
		{"languageid", strconv.Itoa(b.cfg.LanguageID)},
	}
	if p.Children > 0 {
		ages := make([]string, len(p.ChildAges))
		for i, a := range p.ChildAges {
			ages[i] = fmt.Sprintf("%02d", a)
		}
		params = append(params,
			[2]string{"children", strconv.Itoa(p.Children)},
			[2]string{"childage", strings.Join(ages, ",")},
		)
	}

	var query strings.Builder
	for i, kv := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(kv[0])
		query.WriteByte('=')
		query.WriteString(escapeQueryValue(kv[1]))
	}

	return fmt.Sprintf("https://%s/%d?%s#/%s", b.cfg.Host, b.cfg.PropertyID, query.String(), b.cfg.Anchor)
}

// FromState validates s and renders its link.
func (b *URLBuilder) FromState(s State) (string, error) {
	p, err := ParamsFromState(s)
	if err != nil {
		return "", err
	}
	return b.Build(p), nil
}

var keepUnescaped = strings.NewReplacer("%2F", "/", "%2C", ",")

func escapeQueryValue(v string) string {
	return keepUnescaped.Replace(url.QueryEscape(v))
}
