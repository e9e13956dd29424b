package services

import (
	"faculty-appraisal-api/models"
)

// PathValue is one point write produced by flattening a verification payload:
// the path of map keys leading to a verified leaf, and its numeric value.
type PathValue struct {
	Path  []string
	Value float64
}

// Leaf names the verification merge is allowed to write. Claimed, count,
// amount and proof stay faculty-owned for the life of the record.
var verifiedLeaves = map[string]bool{
	"verified":             true,
	"total_verified":       true,
	"grand_total_verified": true,
}

// FlattenVerification walks an arbitrarily nested payload and emits a typed
// path-value list for every verified leaf holding a number. Leaves with other
// names are never emitted; verified leaves holding non-numbers are skipped
// rather than failing the whole merge.
func FlattenVerification(payload map[string]interface{}) []PathValue {
	var out []PathValue
	flattenInto(nil, payload, &out)
	return out
}

func flattenInto(prefix []string, node map[string]interface{}, out *[]PathValue) {
	for key, value := range node {
		path := append(append([]string{}, prefix...), key)
		if child, ok := value.(map[string]interface{}); ok {
			flattenInto(path, child, out)
			continue
		}
		if !verifiedLeaves[key] {
			continue
		}
		if n, ok := toNumber(value); ok {
			*out = append(*out, PathValue{Path: path, Value: n})
		}
	}
}

// ApplyVerification applies a verification payload onto the record via
// path-targeted point writes. Leaves absent from the payload keep their prior
// values; paths that do not resolve to a known metric are ignored so older or
// partial client payloads stay tolerated. Returns the number of leaves
// written. Applying the same payload twice yields the same record.
func ApplyVerification(record *models.AppraisalRecord, payload map[string]interface{}) int {
	applied := 0
	for _, pv := range FlattenVerification(payload) {
		if applySingle(record, pv) {
			applied++
		}
	}
	return applied
}

func applySingle(record *models.AppraisalRecord, pv PathValue) bool {
	if len(pv.Path) < 2 {
		return false
	}

	head, rest := pv.Path[0], pv.Path[1:]

	if head == "summary" {
		if len(rest) != 1 || rest[0] != "grand_total_verified" {
			return false
		}
		if record.Summary == nil {
			record.Summary = &models.Summary{}
		}
		record.Summary.GrandTotalVerified = pv.Value
		return true
	}

	section := record.SectionByID(sectionForKey(head))
	if section == nil {
		return false
	}

	switch {
	case len(rest) == 1 && rest[0] == "total_verified":
		section.TotalVerified = pv.Value
		return true

	case len(rest) == 3 && rest[0] == "metrics" && rest[2] == "verified":
		metric, ok := section.Metrics[rest[1]]
		if !ok {
			return false
		}
		metric.Verified = pv.Value
		section.Metrics[rest[1]] = metric
		return true

	case len(rest) == 4 && rest[0] == "groups" && rest[3] == "verified":
		group, ok := section.Groups[rest[1]]
		if !ok {
			return false
		}
		metric, ok := group[rest[2]]
		if !ok {
			return false
		}
		metric.Verified = pv.Value
		group[rest[2]] = metric
		return true
	}

	return false
}

// sectionForKey maps a payload section key to the section identifier.
func sectionForKey(key string) string {
	switch key {
	case "part_a":
		return models.SectionA
	case "part_b":
		return models.SectionB
	case "part_c":
		return models.SectionC
	case "part_d":
		return models.SectionD
	case "part_e":
		return models.SectionE
	}
	return ""
}
