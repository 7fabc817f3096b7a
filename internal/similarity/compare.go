package similarity

import (
	"strconv"
	"strings"

	"fairfinder/internal/models"
)

// comparisonFallback keeps records with no usable fields comparable instead
// of erroring out of a scan.
const comparisonFallback = "unknown"

func joinPresent(parts []string) string {
	present := parts[:0]
	for _, p := range parts {
		if p != "" {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return comparisonFallback
	}
	return strings.Join(present, " ")
}

// VenueComparisonString derives the canonical text for a venue: name, city,
// state.
func VenueComparisonString(v models.Venue) string {
	return joinPresent([]string{v.Name, v.City, v.State})
}

// VenuePlaceKey exposes the venue's third-party place identifier as an
// exact-match key; empty when the venue has none.
func VenuePlaceKey(v models.Venue) string {
	if v.PlaceID == nil {
		return ""
	}
	return *v.PlaceID
}

// EventComparisonString derives the canonical text for an event: name,
// venue name (when the relation is loaded) and the year it starts.
func EventComparisonString(e models.Event) string {
	parts := []string{e.Name}
	if e.Venue != nil {
		parts = append(parts, e.Venue.Name)
	}
	if !e.StartDate.IsZero() {
		parts = append(parts, strconv.Itoa(e.StartDate.Year()))
	}
	return joinPresent(parts)
}

// VendorComparisonString derives the canonical text for a vendor: business
// name and vendor type.
func VendorComparisonString(v models.Vendor) string {
	parts := []string{v.BusinessName}
	if v.VendorType != nil {
		parts = append(parts, *v.VendorType)
	}
	return joinPresent(parts)
}

// PromoterComparisonString derives the canonical text for a promoter.
func PromoterComparisonString(p models.Promoter) string {
	return joinPresent([]string{p.CompanyName})
}
