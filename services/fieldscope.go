package services

import (
	"faculty-appraisal-api/models"
)

// Leaf keys a faculty owner may write on any scored metric. Everything else,
// verified marks included, is reachable only through the evaluator paths.
var facultyMetricLeaves = map[string]bool{
	"count":   true,
	"amount":  true,
	"claimed": true,
	"proof":   true,
}

// Section-level keys a faculty owner may write.
var facultySectionKeys = map[string]bool{
	"metrics":       true,
	"groups":        true,
	"total_claimed": true,
}

// FilterSectionPayload reduces an arbitrary owner-supplied section payload to
// the faculty-writable leaf set. Unknown and forbidden keys are dropped
// silently, never persisted and never an error. Part D's evaluator leaves
// (dean_marks, hod_marks, director_marks, admin_dean_marks, is_mark_dean,
// is_mark_hod) are top-level section keys and fall out here because they are
// not in the allowed set. Pure function.
func FilterSectionPayload(payload map[string]interface{}) map[string]interface{} {
	filtered := make(map[string]interface{})
	for key, value := range payload {
		if !facultySectionKeys[key] {
			continue
		}
		switch key {
		case "total_claimed":
			if n, ok := toNumber(value); ok {
				filtered[key] = n
			}
		case "metrics":
			if metrics, ok := value.(map[string]interface{}); ok {
				filtered[key] = filterMetricMap(metrics)
			}
		case "groups":
			if groups, ok := value.(map[string]interface{}); ok {
				out := make(map[string]interface{}, len(groups))
				for name, raw := range groups {
					if group, ok := raw.(map[string]interface{}); ok {
						out[name] = filterMetricMap(group)
					}
				}
				filtered[key] = out
			}
		}
	}
	return filtered
}

func filterMetricMap(metrics map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(metrics))
	for name, raw := range metrics {
		metric, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		leaves := make(map[string]interface{}, len(metric))
		for leaf, value := range metric {
			if facultyMetricLeaves[leaf] {
				leaves[leaf] = value
			}
		}
		out[name] = leaves
	}
	return out
}

// ApplySectionPayload merges a filtered payload onto the typed section. Only
// leaves present in the payload change; verified marks and untouched metrics
// keep their prior values.
func ApplySectionPayload(section *models.Section, filtered map[string]interface{}) {
	if n, ok := toNumber(filtered["total_claimed"]); ok {
		section.TotalClaimed = n
	}

	if metrics, ok := filtered["metrics"].(map[string]interface{}); ok {
		if section.Metrics == nil {
			section.Metrics = make(map[string]models.ScoredMetric, len(metrics))
		}
		for name, raw := range metrics {
			leaves, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			metric := section.Metrics[name]
			applyMetricLeaves(&metric, leaves)
			section.Metrics[name] = metric
		}
	}

	if groups, ok := filtered["groups"].(map[string]interface{}); ok {
		if section.Groups == nil {
			section.Groups = make(map[string]map[string]models.ScoredMetric, len(groups))
		}
		for groupName, raw := range groups {
			group, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if section.Groups[groupName] == nil {
				section.Groups[groupName] = make(map[string]models.ScoredMetric, len(group))
			}
			for name, metricRaw := range group {
				leaves, ok := metricRaw.(map[string]interface{})
				if !ok {
					continue
				}
				metric := section.Groups[groupName][name]
				applyMetricLeaves(&metric, leaves)
				section.Groups[groupName][name] = metric
			}
		}
	}
}

func applyMetricLeaves(metric *models.ScoredMetric, leaves map[string]interface{}) {
	if raw, present := leaves["count"]; present {
		if n, ok := toNumber(raw); ok {
			metric.Count = &n
		}
	}
	if raw, present := leaves["amount"]; present {
		if n, ok := toNumber(raw); ok {
			metric.Amount = &n
		}
	}
	if raw, present := leaves["claimed"]; present {
		if n, ok := toNumber(raw); ok {
			metric.Claimed = n
		}
	}
	if raw, present := leaves["proof"]; present {
		if s, ok := raw.(string); ok {
			metric.Proof = s
		}
	}
}

// toNumber accepts the numeric types encoding/json produces.
func toNumber(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
