package ingest

import (
	"maps"
	"slices"
	"strings"
)

const (
	portalURL   = "https://data.london.gov.uk"
	landingBase = portalURL + "/dataset/"
	downloadURL = portalURL + "/download/"
)

// Dataset is the preprocessed record written per dataset. Field order is
// the output order.
type Dataset struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Summary              string     `json:"summary"`
	Publisher            string     `json:"publisher"`
	Tags                 any        `json:"tags"`
	MetadataCreated      any        `json:"metadata_created"`
	MetadataModified     any        `json:"metadata_modified"`
	TemporalCoverageFrom any        `json:"temporal_coverage_from"`
	TemporalCoverageTo   any        `json:"temporal_coverage_to"`
	GeospatialCoverage   Geospatial `json:"geospatial_coverage"`
	Resources            []Resource `json:"resources"`
	License              any        `json:"license"`
	LandingPage          string     `json:"landing_page"`
}

type Geospatial struct {
	BoundingBox       any `json:"bounding_box"`
	SmallestGeography any `json:"smallest_geography"`
}

type Resource struct {
	Title                string `json:"title"`
	URL                  string `json:"url"`
	Format               any    `json:"format"`
	TemporalCoverageFrom any    `json:"temporal_coverage_from"`
	TemporalCoverageTo   any    `json:"temporal_coverage_to"`
	Size                 any    `json:"size"`
	Mimetype             any    `json:"mimetype"`
}

// IsZero reports whether d came from empty metadata.
func (d Dataset) IsZero() bool { return d.LandingPage == "" }

// Preprocess maps raw portal metadata onto a Dataset, filling the portal's
// conventional defaults for missing fields. Empty metadata yields the zero
// Dataset.
func Preprocess(raw map[string]any) Dataset {
	if len(raw) == 0 {
		return Dataset{}
	}

	extras, _ := raw["extras"].(map[string]any)
	smallest := truthy(raw["london_smallest_geography"])
	if smallest == nil {
		smallest = valueOr(extras, "smallest_geography", "Not specified")
	}

	license := truthy(dig(raw, "readonly", "licence", "title"))
	if license == nil {
		license = valueOr(raw, "licence", "Unknown License")
	}

	id, _ := raw["id"].(string)
	return Dataset{
		ID:                   stringOr(raw, "id", "unknown"),
		Title:                stringOr(raw, "title", "Unnamed Dataset"),
		Summary:              CleanHTML(stringOr(raw, "description", "")),
		Publisher:            stringOr(raw, "maintainer", "Unknown Publisher"),
		Tags:                 valueOr(raw, "tags", []any{}),
		MetadataCreated:      valueOr(raw, "createdAt", "Unknown"),
		MetadataModified:     valueOr(raw, "updatedAt", "Unknown"),
		TemporalCoverageFrom: raw["temporal_coverage_from"],
		TemporalCoverageTo:   raw["temporal_coverage_to"],
		GeospatialCoverage: Geospatial{
			BoundingBox:       valueOr(raw, "london_bounding_box", "Unknown"),
			SmallestGeography: smallest,
		},
		Resources:   resources(raw),
		License:     license,
		LandingPage: landingBase + id,
	}
}

// resources reads the id-keyed "resources" object, ordered by resource id.
func resources(raw map[string]any) []Resource {
	out := []Resource{}
	byID, ok := raw["resources"].(map[string]any)
	if !ok {
		return out
	}

	slug := stringOr(raw, "slug", "")
	if slug == "" {
		slug, _ = raw["id"].(string)
	}
	for _, resID := range slices.Sorted(maps.Keys(byID)) {
		res, _ := byID[resID].(map[string]any)
		title, _ := res["title"].(string)
		displayTitle := title
		if _, present := res["title"]; !present {
			displayTitle = "Unnamed Resource"
		}
		out = append(out, Resource{
			Title:                displayTitle,
			URL:                  downloadURL + slug + "/" + resID + "/" + strings.ReplaceAll(title, " ", "%20"),
			Format:               valueOr(res, "format", "Unknown"),
			TemporalCoverageFrom: res["temporal_coverage_from"],
			TemporalCoverageTo:   res["temporal_coverage_to"],
			Size:                 valueOr(res, "check_size", "Unknown"),
			Mimetype:             valueOr(res, "check_mimetype", "Unknown"),
		})
	}
	return out
}

// valueOr returns m[key] when the key is present (even if null), else def.
func valueOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func stringOr(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

// truthy returns v unless it is null, false, zero, or an empty string or
// collection.
func truthy(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
	case bool:
		if !x {
			return nil
		}
	case float64:
		if x == 0 {
			return nil
		}
	case []any:
		if len(x) == 0 {
			return nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
	}
	return v
}
