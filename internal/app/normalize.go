package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"campground_ingest/internal/domain"
)

const defaultKind = "campground"

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// optStr returns a trimmed non-empty string or nil.
func optStr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// asFloat accepts JSON numbers and numeric strings like "25.00".
func asFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func optFloat(v any) *float64 {
	if f, ok := asFloat(v); ok {
		return &f
	}
	return nil
}

// count reads a non-negative integer; wrong shapes default to 0 and
// values past the INT column range are clamped to math.MaxInt32.
func count(v any) int {
	f, ok := asFloat(v)
	if !ok || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// strList keeps the string members of a JSON array, in order.
func strList(v any) []string {
	out := []string{}
	raw, ok := v.([]any)
	if !ok {
		return out
	}
	for _, it := range raw {
		switch t := it.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			// photo objects sometimes arrive as {url: ...}
			if u, ok := t["url"].(string); ok && u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

func optTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// recordID renders the upstream id; numeric ids become their integer form.
func recordID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		return t.String(), t.String() != ""
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), true
		}
	}
	return "", false
}

func reject(field, reason string) error {
	return &domain.NormalizationError{Field: field, Reason: reason}
}

/********** record normalizer **********/

// Normalize turns one upstream search-results record into a Campground.
// Missing or wrong-shaped required fields yield a *domain.NormalizationError;
// optional fields fall back to their defaults.
func Normalize(raw map[string]any) (domain.Campground, error) {
	id, ok := recordID(raw["id"])
	if !ok {
		return domain.Campground{}, reject("id", "missing or not a string")
	}
	attrs, ok := raw["attributes"].(map[string]any)
	if !ok {
		return domain.Campground{}, reject("attributes", "missing or not an object")
	}

	name := optStr(attrs["name"])
	if name == nil {
		return domain.Campground{}, reject("name", "missing or empty")
	}
	lat, ok := asFloat(attrs["latitude"])
	if !ok {
		return domain.Campground{}, reject("coordinates", "latitude missing or not a number")
	}
	lon, ok := asFloat(attrs["longitude"])
	if !ok {
		return domain.Campground{}, reject("coordinates", "longitude missing or not a number")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.Campground{}, reject("coordinates", "out of range")
	}
	region := optStr(attrs["region-name"])
	if region == nil {
		return domain.Campground{}, reject("region_name", "missing or empty")
	}
	self := optStr(lookupAny(raw, "links.self"))
	if self == nil {
		return domain.Campground{}, reject("self_link", "missing or empty")
	}

	kind := defaultKind
	if k := optStr(raw["type"]); k != nil {
		kind = *k
	}

	return domain.Campground{
		ID:                    id,
		Type:                  kind,
		Name:                  *name,
		Coords:                domain.Coords{Lat: lat, Lon: lon},
		RegionName:            *region,
		AdministrativeArea:    optStr(attrs["administrative-area"]),
		NearestCityName:       optStr(attrs["nearest-city-name"]),
		AccommodationTypes:    strList(attrs["accommodation-type-names"]),
		CamperTypes:           strList(attrs["camper-types"]),
		Bookable:              attrs["bookable"] == true,
		Operator:              optStr(attrs["operator"]),
		PhotoURL:              optStr(attrs["photo-url"]),
		PhotoURLs:             strList(attrs["photo-urls"]),
		PhotoCount:            count(attrs["photos-count"]),
		Rating:                optFloat(attrs["rating"]),
		ReviewCount:           count(attrs["reviews-count"]),
		Slug:                  optStr(attrs["slug"]),
		PriceLow:              optFloat(attrs["price-low"]),
		PriceHigh:             optFloat(attrs["price-high"]),
		AvailabilityUpdatedAt: optTime(attrs["availability-updated-at"]),
		SelfLink:              *self,
	}, nil
}
