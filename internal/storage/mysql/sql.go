package mysql

const campgroundColumns = `id, type, name, lat, lon, region_name, administrative_area, nearest_city_name,
  accommodation_type_names, camper_types, bookable, operator, photo_url, photo_urls, photos_count,
  rating, reviews_count, slug, price_low, price_high, availability_updated_at, self_link`

// Plain INSERT: an existing id must surface as a duplicate-key error, never an update.
const insertCampgroundSQL = `
INSERT INTO campgrounds
  (` + campgroundColumns + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const findCampgroundSQL = `
SELECT ` + campgroundColumns + `
FROM campgrounds
WHERE id = ?
`
