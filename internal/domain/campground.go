package domain

import "time"

// Campground is the normalized location record persisted by ingestion.
// Optional attributes are pointers; nil means null.
type Campground struct {
	ID                    string     `json:"id"`
	Type                  string     `json:"type"` // "campground", ...
	Name                  string     `json:"name"`
	Coords                Coords     `json:"coordinates"`
	RegionName            string     `json:"region_name"`
	AdministrativeArea    *string    `json:"administrative_area"`
	NearestCityName       *string    `json:"nearest_city_name"`
	AccommodationTypes    []string   `json:"accommodation_type_names"`
	CamperTypes           []string   `json:"camper_types"`
	Bookable              bool       `json:"bookable"`
	Operator              *string    `json:"operator"`
	PhotoURL              *string    `json:"photo_url"`
	PhotoURLs             []string   `json:"photo_urls"`
	PhotoCount            int        `json:"photos_count"`
	Rating                *float64   `json:"rating"`
	ReviewCount           int        `json:"reviews_count"`
	Slug                  *string    `json:"slug"`
	PriceLow              *float64   `json:"price_low"`
	PriceHigh             *float64   `json:"price_high"`
	AvailabilityUpdatedAt *time.Time `json:"availability_updated_at"`
	SelfLink              string     `json:"self_link"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RawPage is one decoded upstream search-results payload.
type RawPage struct {
	Data  []map[string]any
	Meta  map[string]any
	Links map[string]any
	Body  []byte // exact bytes received, for archiving
}
