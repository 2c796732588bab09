package scraper

import (
	"fmt"
	"math"
	"strings"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

// The map-search payload has no schema; fields live at positional paths
// inside each candidate's descriptor array (item[14]). Each extracted
// field is driven by a rule: ordered path probes, each with a validator,
// optionally followed by a bounded fallback scan. The probes are data;
// one walker interprets them all, so the ruleset can drift with the
// upstream layout without touching control flow.

// validator checks a raw node and returns the normalized value.
type validator func(any) (any, bool)

// probe pairs a positional path into the descriptor with its validator.
type probe struct {
	path  []int
	check validator
}

// firstMatch returns the first probed value whose validator accepts it.
func firstMatch(root any, probes []probe) (any, bool) {
	for _, p := range probes {
		v := nodeAt(root, p.path...)
		if v == nil {
			continue
		}
		if got, ok := p.check(v); ok {
			return got, true
		}
	}
	return nil, false
}

var (
	ratingProbes  = []probe{{path: []int{4, 7}, check: floatInRange(0, 5)}}
	reviewsProbes = []probe{{path: []int{4, 8}, check: wholeNumber}}

	websiteProbes = []probe{
		{path: []int{7, 0}, check: urlCandidate},
		{path: []int{7, 1}, check: urlCandidate},
		{path: []int{7}, check: urlCandidate},
		{path: []int{177}, check: urlCandidate},
		{path: []int{179}, check: urlCandidate},
	}

	priceProbes = []probe{
		{path: []int{4, 2}, check: priceCandidate},
		{path: []int{4, 4}, check: priceCandidate},
	}

	latProbes = []probe{
		{path: []int{9, 2}, check: floatInRange(-90, 90)},
		{path: []int{1, 2}, check: floatInRange(-90, 90)},
		{path: []int{0, 2}, check: floatInRange(-90, 90)},
	}
	lngProbes = []probe{
		{path: []int{9, 3}, check: floatInRange(-180, 180)},
		{path: []int{1, 3}, check: floatInRange(-180, 180)},
		{path: []int{0, 3}, check: floatInRange(-180, 180)},
	}
)

// addressTokens mark strings that are address fragments, not names.
// Bilingual: the upstream mixes Arabic and English location words.
var addressTokens = []string{"شارع", "طريق", "محافظة", "قسم", "ميدان", "street", "road"}

var serviceKeywords = map[string][]string{
	"dine_in":  {"dine_in", "الجلوس"},
	"takeaway": {"takeout", "سفري"},
	"delivery": {"delivery", "توصيل"},
}

// ExtractPlaces pulls every extractable place from a decoded payload.
// Candidates live at root[0][1][i]; a candidate qualifies only when its
// descriptor sub-array at [14] is present. Candidates without a
// resolvable name are dropped entirely.
func ExtractPlaces(tree []any) []model.Place {
	items := asSlice(nodeAt(tree, 0, 1))

	var places []model.Place
	for _, item := range items {
		detail := asSlice(nodeAt(item, 14))
		if len(detail) == 0 {
			continue
		}
		if p, ok := extractPlace(detail); ok {
			places = append(places, p)
		}
	}
	return places
}

func extractPlace(detail []any) (model.Place, bool) {
	name := resolveName(detail)
	if name == "" {
		return model.Place{}, false
	}

	p := model.Place{Name: name}

	if parts := asSlice(nodeAt(detail, 2)); len(parts) > 0 {
		var strs []string
		for _, part := range parts {
			if s := asString(part); s != "" {
				strs = append(strs, s)
			}
		}
		p.Address = strings.Join(strs, ", ")
	}

	if v, ok := firstMatch(detail, ratingProbes); ok {
		r := v.(float64)
		p.Rating = &r
	}
	if v, ok := firstMatch(detail, reviewsProbes); ok {
		n := int(v.(float64))
		p.ReviewsCount = &n
	}

	p.Phones = extractPhones(detail)

	if v, ok := firstMatch(detail, websiteProbes); ok {
		p.Website = v.(string)
	}
	if v, ok := firstMatch(detail, priceProbes); ok {
		p.PriceRange = v.(string)
	}

	if s := strings.TrimSpace(asString(nodeAt(detail, 13, 0))); s != "" {
		p.Cuisine = s
		p.Category = s
	}

	p.OpeningHours = extractOpeningHours(detail)
	p.Services = extractServices(detail)

	if v, ok := firstMatch(detail, latProbes); ok {
		lat := v.(float64)
		p.Coordinates.Lat = &lat
	}
	if v, ok := firstMatch(detail, lngProbes); ok {
		lng := v.(float64)
		p.Coordinates.Lng = &lng
	}

	p.ReviewHighlights = harvestHighlights(nodeAt(detail, 88), name)

	if img := asString(nodeAt(detail, 72, 0, 0, 6, 0)); strings.Contains(img, "googleusercontent") {
		p.Images = []string{img}
	}

	return p, true
}

// resolveName tries the fixed name slot first, then a bounded scan over
// the descriptor's top-level strings, rejecting tokens that look like
// hex identifiers, URLs, or address fragments.
func resolveName(detail []any) string {
	if s := asString(nodeAt(detail, 11)); s != "" && len(s) < 100 {
		if !strings.Contains(s, "0x") && !strings.Contains(s, ":") && !containsAddressToken(s) {
			return s
		}
	}

	for _, v := range detail {
		s, ok := v.(string)
		if !ok || s == "" || len(s) >= 100 {
			continue
		}
		if strings.Contains(s, "0x") || strings.Contains(s, "http") {
			continue
		}
		if strings.Contains(s, ":") && len(s) > 20 {
			continue
		}
		if containsAddressToken(s) {
			continue
		}
		// Bare identifier-shaped tokens are internal markers, not names
		if isBareToken(s) {
			continue
		}
		return s
	}
	return ""
}

func extractPhones(detail []any) []string {
	var phones []string
	for _, entry := range asSlice(nodeAt(detail, 178)) {
		e := asSlice(entry)
		if len(e) == 0 {
			continue
		}
		// Formatted variant first, unformatted fallback
		ph := asString(e[0])
		if ph == "" && len(e) > 3 {
			ph = asString(e[3])
		}
		if ph = strings.TrimSpace(ph); ph != "" {
			phones = append(phones, ph)
		}
	}
	return phones
}

// statusSeparator splits the "open now" status from the closing time.
const statusSeparator = "⋅"

func extractOpeningHours(detail []any) *model.OpeningHours {
	raw := asString(nodeAt(detail, 34, 4, 0))
	if raw == "" || !strings.Contains(raw, statusSeparator) {
		return nil
	}

	parts := strings.SplitN(raw, statusSeparator, 2)
	status := strings.TrimSpace(parts[0])
	open := strings.Contains(status, "مفتوح") || strings.Contains(status, "Open")

	closes := strings.TrimSpace(parts[1])
	closes = strings.TrimPrefix(closes, "يغلق ")
	closes = strings.TrimPrefix(closes, "Closes ")

	return &model.OpeningHours{Open: &open, Closes: closes}
}

func extractServices(detail []any) model.ServiceFlags {
	var flags model.ServiceFlags
	for _, opt := range asSlice(nodeAt(detail, 77)) {
		s := strings.ToLower(fmt.Sprintf("%v", opt))
		flags.DineIn = flags.DineIn || containsAny(s, serviceKeywords["dine_in"])
		flags.Takeaway = flags.Takeaway || containsAny(s, serviceKeywords["takeaway"])
		flags.Delivery = flags.Delivery || containsAny(s, serviceKeywords["delivery"])
	}
	return flags
}

// harvestHighlights recursively collects review snippet strings from the
// highlights subtree, three levels deep at most. Technical tokens,
// address fragments, short strings, and duplicates of the place name are
// rejected; order is preserved and exact duplicates removed.
func harvestHighlights(node any, name string) []string {
	var out []string
	for _, item := range asSlice(node) {
		switch v := item.(type) {
		case string:
			if highlightOK(v, name) {
				out = append(out, strings.TrimSpace(v))
			}
		case []any:
			for _, sub := range v {
				switch sv := sub.(type) {
				case string:
					if highlightOK(sv, name) {
						out = append(out, strings.TrimSpace(sv))
					}
				case []any:
					for _, deep := range sv {
						s, ok := deep.(string)
						if !ok {
							continue
						}
						t := strings.TrimSpace(s)
						if len(t) > 10 && !strings.HasPrefix(s, "SearchResult.TYPE_") &&
							!containsAddressToken(s) && t != name {
							out = append(out, t)
						}
					}
				}
			}
		}
	}
	return dedupeOrdered(out)
}

func highlightOK(s, name string) bool {
	t := strings.TrimSpace(s)
	if len(t) <= 2 || t == "EG" || t == "None" || t == name {
		return false
	}
	if strings.HasPrefix(s, "SearchResult.TYPE_") {
		return false
	}
	return !containsAddressToken(s)
}

func dedupeOrdered(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// --- validators ---

func floatInRange(min, max float64) validator {
	return func(v any) (any, bool) {
		f, ok := asNumber(v)
		if !ok || f < min || f > max {
			return nil, false
		}
		return f, true
	}
}

func wholeNumber(v any) (any, bool) {
	f, ok := asNumber(v)
	if !ok {
		return nil, false
	}
	return math.Trunc(f), true
}

func urlCandidate(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		if hasURLMarker(t) {
			return t, true
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && hasURLMarker(s) {
				return s, true
			}
		}
	}
	return nil, false
}

var priceWords = []string{"cheap", "expensive", "moderate", "inexpensive"}

func priceCandidate(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, false
		}
		if strings.Contains(s, "$") || containsAny(strings.ToLower(s), priceWords) {
			return s, true
		}
	case float64:
		if t >= 1 && t <= 4 && t == math.Trunc(t) {
			return strings.Repeat("$", int(t)), true
		}
	}
	return nil, false
}

// --- tree walking ---

// nodeAt navigates nested []any arrays by index path without panicking.
func nodeAt(data any, path ...int) any {
	current := data
	for _, idx := range path {
		slice, ok := current.([]any)
		if !ok || idx < 0 || idx >= len(slice) {
			return nil
		}
		current = slice[idx]
	}
	return current
}

func asSlice(data any) []any {
	slice, _ := data.([]any)
	return slice
}

func asString(data any) string {
	s, _ := data.(string)
	return s
}

func asNumber(data any) (float64, bool) {
	f, ok := data.(float64)
	return f, ok
}

// --- string predicates ---

func hasURLMarker(s string) bool {
	return strings.Contains(s, "http") || strings.Contains(s, "www.")
}

func containsAddressToken(s string) bool {
	return containsAny(s, addressTokens)
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// isBareToken reports whether the string is purely alphanumeric once
// underscores and hyphens are stripped, i.e. an internal marker like
// "restaurant_results" rather than a display name.
func isBareToken(s string) bool {
	stripped := strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return -1
		}
		return r
	}, s)
	if stripped == "" {
		return true
	}
	for _, r := range stripped {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			return false
		}
	}
	return true
}
