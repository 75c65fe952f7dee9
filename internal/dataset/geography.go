package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]json.RawMessage `json:"properties"`
	Geometry   json.RawMessage            `json:"geometry"`
}

// ParseGeography reads the region geography. GeoJSON keeps each feature's
// geometry untouched; tabular formats carry identifiers and names only.
func ParseGeography(r io.Reader, format Format) ([]GeographyRow, []domain.Warning, error) {
	if format != FormatGeoJSON {
		t, err := ReadTable(r, format)
		if err != nil {
			return nil, nil, fmt.Errorf("geography table: %w", err)
		}
		return ParseGeographyTable(t)
	}

	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, nil, fmt.Errorf("%w: geojson type %q, want FeatureCollection", domain.ErrInvalidInput, fc.Type)
	}

	rows := make([]GeographyRow, 0, len(fc.Features))
	var warnings []domain.Warning
	for i, f := range fc.Features {
		props := lowerKeys(f.Properties)
		region := NormalizeRegionID(firstProperty(props, colRegionID))
		if region == "" {
			warnings = append(warnings, domain.DataWarning(domain.CodeRowSkipped, "", "geography feature %d: no region id property", i))
			continue
		}
		name := firstProperty(props, colName)
		if name == "" {
			name = region
		}

		var geometry []byte
		if len(f.Geometry) > 0 && string(f.Geometry) != "null" {
			geometry = append([]byte(nil), f.Geometry...)
		}
		rows = append(rows, GeographyRow{RegionID: region, Name: name, Geometry: geometry})
	}
	return rows, warnings, nil
}

func lowerKeys(props map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(props))
	for k, v := range props {
		out[strings.ToLower(k)] = v
	}
	return out
}

// firstProperty returns the first present property as a string; numbers are
// rendered without exponent so numeric codes survive.
func firstProperty(props map[string]json.RawMessage, names []string) string {
	for _, n := range names {
		raw, ok := props[strings.ToLower(n)]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return ""
}
