package pipeline

import "github.com/ternarybob/jobfinder/internal/models"

// The pipeline_state payload columns (filter_result, extraction,
// match_result) are stored as loosely typed JSONMap so the schema doesn't
// change with every new analyser field; these helpers round-trip the
// strongly typed structs stage handlers actually work with through that
// representation via a plain field-by-field map, avoiding an
// encoding/json round trip on every stage transition.

func filterResultToJSONMap(r models.FilterResult) models.JSONMap {
	rejections := make([]interface{}, 0, len(r.Rejections))
	for _, rej := range r.Rejections {
		rejections = append(rejections, map[string]interface{}{
			"filter_name":     rej.FilterName,
			"filter_category": rej.FilterCategory,
			"severity":        string(rej.Severity),
			"reason":          rej.Reason,
			"points":          rej.Points,
		})
	}
	return models.JSONMap{
		"passed":        r.Passed,
		"total_strikes": r.TotalStrikes,
		"rejections":    rejections,
	}
}

func filterResultFromJSONMap(m models.JSONMap) models.FilterResult {
	result := models.FilterResult{}
	if passed, ok := m["passed"].(bool); ok {
		result.Passed = passed
	}
	if strikes, ok := m["total_strikes"]; ok {
		result.TotalStrikes = intFromAny(strikes)
	}
	if raw, ok := m["rejections"].([]interface{}); ok {
		for _, item := range raw {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			result.Rejections = append(result.Rejections, models.Rejection{
				FilterName:     stringFromAny(entry["filter_name"]),
				FilterCategory: stringFromAny(entry["filter_category"]),
				Severity:       models.RejectionSeverity(stringFromAny(entry["severity"])),
				Reason:         stringFromAny(entry["reason"]),
				Points:         intFromAny(entry["points"]),
			})
		}
	}
	return result
}

// filterResultDetails renders a FilterResult as an operator-readable
// error_details blob for FILTERED items.
func filterResultDetails(r models.FilterResult) string {
	out := ""
	for _, rej := range r.Rejections {
		out += string(rej.Severity) + ": " + rej.FilterName + " - " + rej.Reason + "\n"
	}
	return out
}

func extractionToJSONMap(e models.ExtractionRecord) models.JSONMap {
	m := models.JSONMap{
		"seniority":        e.Seniority,
		"work_arrangement": e.WorkArrangement,
		"timezone":         e.Timezone,
		"city":             e.City,
		"technologies":     e.Technologies,
		"employment_type":  e.EmploymentType,
		"role_types":       e.RoleTypes,
		"confidence":       e.Confidence,
		"missing_fields":   e.MissingFields,
	}
	if e.SalaryMin != nil {
		m["salary_min"] = *e.SalaryMin
	}
	if e.SalaryMax != nil {
		m["salary_max"] = *e.SalaryMax
	}
	if e.ExperienceMin != nil {
		m["experience_min"] = *e.ExperienceMin
	}
	if e.ExperienceMax != nil {
		m["experience_max"] = *e.ExperienceMax
	}
	if e.FreshnessDays != nil {
		m["freshness_days"] = *e.FreshnessDays
	}
	return m
}

func extractionFromJSONMap(m models.JSONMap) models.ExtractionRecord {
	if m == nil {
		return models.ExtractionRecord{}
	}
	e := models.ExtractionRecord{
		Seniority:       stringFromAny(m["seniority"]),
		WorkArrangement: stringFromAny(m["work_arrangement"]),
		Timezone:        stringFromAny(m["timezone"]),
		City:            stringFromAny(m["city"]),
		Technologies:    stringSliceFromAny(m["technologies"]),
		EmploymentType:  stringFromAny(m["employment_type"]),
		RoleTypes:       stringSliceFromAny(m["role_types"]),
		Confidence:      floatFromAny(m["confidence"]),
		MissingFields:   stringSliceFromAny(m["missing_fields"]),
	}
	if v, ok := m["salary_min"]; ok {
		f := floatFromAny(v)
		e.SalaryMin = &f
	}
	if v, ok := m["salary_max"]; ok {
		f := floatFromAny(v)
		e.SalaryMax = &f
	}
	if v, ok := m["experience_min"]; ok {
		n := intFromAny(v)
		e.ExperienceMin = &n
	}
	if v, ok := m["experience_max"]; ok {
		n := intFromAny(v)
		e.ExperienceMax = &n
	}
	if v, ok := m["freshness_days"]; ok {
		n := intFromAny(v)
		e.FreshnessDays = &n
	}
	return e
}

func matchResultToJSONMap(r models.MatchResult) models.JSONMap {
	return models.JSONMap{
		"matched_skills":                r.MatchedSkills,
		"missing_skills":                r.MissingSkills,
		"experience_match":              r.ExperienceMatch,
		"key_strengths":                 r.KeyStrengths,
		"potential_concerns":            r.PotentialConcerns,
		"customization_recommendations": r.CustomizationRecommendations,
	}
}

func matchResultFromJSONMap(m models.JSONMap) models.MatchResult {
	if m == nil {
		return models.MatchResult{}
	}
	return models.MatchResult{
		MatchedSkills:                 stringSliceFromAny(m["matched_skills"]),
		MissingSkills:                 stringSliceFromAny(m["missing_skills"]),
		ExperienceMatch:               stringFromAny(m["experience_match"]),
		KeyStrengths:                  stringFromAny(m["key_strengths"]),
		PotentialConcerns:             stringFromAny(m["potential_concerns"]),
		CustomizationRecommendations:  stringFromAny(m["customization_recommendations"]),
	}
}

func stringFromAny(v interface{}) string {
	s, _ := v.(string)
	return s
}

func intFromAny(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func floatFromAny(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func stringSliceFromAny(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
