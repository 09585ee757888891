package resultstore

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jonathanw33/mrsa-kds/internal/model"
)

// Raw is one analysis result as a producer emitted it: a decoded JSON object
// whose field names vary between producers and over time.
type Raw map[string]any

// Normalize resolves raw into the fixed AnalysisRecord schema. It never
// fails: a field with no usable alias takes its documented default.
//
// Defaults: empty id, sample label, timestamp and savedAt; StatusUnknown;
// confidence 0; empty (non-nil) gene and region slices; nil treatment.
func Normalize(raw Raw) model.AnalysisRecord {
	rec := model.AnalysisRecord{
		Status:          model.StatusUnknown,
		IdentifiedGenes: []string{},
		MatchingRegions: []model.MatchingRegion{},
	}
	if raw == nil {
		return rec
	}

	rec.ID, _ = firstString(raw, idAliases)
	rec.SampleLabel, _ = firstString(raw, sampleLabelAliases)
	if status, ok := firstString(raw, statusAliases); ok {
		rec.Status = model.ParseResistanceStatus(status)
	}
	rec.ConfidencePercent = resolveConfidence(raw)
	if genes, ok := firstStringList(raw, genesAliases); ok {
		rec.IdentifiedGenes = genes
	}
	if regions, ok := firstList(raw, regionsAliases); ok {
		rec.MatchingRegions = normalizeRegions(regions)
	}
	if treatment, ok := firstObject(raw, treatmentAliases); ok {
		rec.TreatmentRecommendations = normalizeTreatment(treatment)
	}
	rec.Timestamp, _ = firstString(raw, timestampAliases)
	rec.SavedAt, _ = firstString(raw, savedAtAliases)
	return rec
}

func resolveConfidence(raw Raw) float64 {
	for _, alias := range confidenceAliases {
		v, ok := raw[alias.name]
		if !ok {
			continue
		}
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		return clampPercent(f * alias.scale)
	}
	return 0
}

// clampPercent bounds p to [0,100] and rounds away float noise left by
// fraction scaling (0.82*100 must read as 82).
func clampPercent(p float64) float64 {
	p = math.Round(p*1e6) / 1e6
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func normalizeRegions(items []any) []model.MatchingRegion {
	regions := make([]model.MatchingRegion, 0, len(items))
	for _, item := range items {
		obj, ok := asObject(item)
		if !ok {
			continue
		}
		var r model.MatchingRegion
		r.GeneName, _ = firstString(obj, regionGeneAliases)
		r.QueryStart = firstInt(obj, regionQueryStartAliases)
		r.QueryEnd = firstInt(obj, regionQueryEndAliases)
		r.SubjectStart = firstInt(obj, regionSubjectStartAliases)
		r.SubjectEnd = firstInt(obj, regionSubjectEndAliases)
		r.AlignmentLength = firstInt(obj, regionLengthAliases)
		if identity, ok := firstFloat(obj, regionIdentityAliases); ok {
			r.PercentIdentity = clampPercent(identity)
		}
		if evalue, ok := firstFloat(obj, regionEvalueAliases); ok && evalue > 0 {
			r.Evalue = evalue
		}
		regions = append(regions, r)
	}
	return regions
}

func normalizeTreatment(obj map[string]any) *model.TreatmentRecommendations {
	t := &model.TreatmentRecommendations{
		RecommendedAntibiotics: []string{},
		AvoidAntibiotics:       []string{},
	}
	if list, ok := firstStringList(obj, recommendedAliases); ok {
		t.RecommendedAntibiotics = list
	}
	if list, ok := firstStringList(obj, avoidAliases); ok {
		t.AvoidAntibiotics = list
	}
	if notes, ok := firstString(obj, notesAliases); ok {
		t.Notes = &notes
	}
	return t
}

// --- alias lookups ---

func firstString(obj map[string]any, aliases []string) (string, bool) {
	for _, name := range aliases {
		if s, ok := asString(obj[name]); ok {
			return s, true
		}
	}
	return "", false
}

func firstFloat(obj map[string]any, aliases []string) (float64, bool) {
	for _, name := range aliases {
		if f, ok := asFloat(obj[name]); ok {
			return f, true
		}
	}
	return 0, false
}

func firstInt(obj map[string]any, aliases []string) int {
	f, ok := firstFloat(obj, aliases)
	if !ok {
		return 0
	}
	return int(math.Round(f))
}

func firstStringList(obj map[string]any, aliases []string) ([]string, bool) {
	for _, name := range aliases {
		if list, ok := asStringList(obj[name]); ok {
			return list, true
		}
	}
	return nil, false
}

func firstList(obj map[string]any, aliases []string) ([]any, bool) {
	for _, name := range aliases {
		if list, ok := asList(obj[name]); ok {
			return list, true
		}
	}
	return nil, false
}

func firstObject(obj map[string]any, aliases []string) (map[string]any, bool) {
	for _, name := range aliases {
		if o, ok := asObject(obj[name]); ok {
			return o, true
		}
	}
	return nil, false
}

// --- value coercion ---

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := asString(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []Raw:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	default:
		return nil, false
	}
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Raw:
		return t, true
	default:
		return nil, false
	}
}
