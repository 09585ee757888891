package resultstore

// Known field names per logical field, in resolution order. The first alias
// that carries a usable value wins; later aliases are not consulted.
//
// Remote API payloads use the snake_case names. Records persisted by older
// builds used status, confidence (a 0-1 fraction), resistance_genes and
// timestamp. camelCase names appear when a normalized record is fed back in.
var (
	idAliases          = []string{"id", "analysis_id", "result_id"}
	sampleLabelAliases = []string{"sample_id", "sampleId", "sample_label", "sampleLabel", "filename", "file_name"}
	statusAliases      = []string{"resistance_status", "status"}
	genesAliases       = []string{"identified_genes", "resistance_genes", "identifiedGenes"}
	regionsAliases     = []string{"matching_regions", "matchingRegions", "alignments"}
	treatmentAliases   = []string{"treatment_recommendations", "treatmentRecommendations", "treatment"}
	timestampAliases   = []string{"analysis_timestamp", "savedAt", "timestamp"}
	savedAtAliases     = []string{"savedAt", "saved_at"}
)

// confidenceAlias pairs a field name with the factor that brings its value
// onto the 0-100 scale.
type confidenceAlias struct {
	name  string
	scale float64
}

var confidenceAliases = []confidenceAlias{
	{name: "confidence_score", scale: 1},
	{name: "confidencePercent", scale: 1},
	{name: "confidence", scale: 100},
}

// Per-region and per-treatment aliases.
var (
	regionGeneAliases         = []string{"gene_name", "geneName", "gene", "subject_id"}
	regionQueryStartAliases   = []string{"query_start", "queryStart"}
	regionQueryEndAliases     = []string{"query_end", "queryEnd"}
	regionSubjectStartAliases = []string{"subject_start", "subjectStart"}
	regionSubjectEndAliases   = []string{"subject_end", "subjectEnd"}
	regionLengthAliases       = []string{"alignment_length", "alignmentLength"}
	regionIdentityAliases     = []string{"percent_identity", "percentIdentity", "identity"}
	regionEvalueAliases       = []string{"evalue", "e_value"}

	recommendedAliases = []string{"recommended_antibiotics", "recommendedAntibiotics"}
	avoidAliases       = []string{"avoid_antibiotics", "avoidAntibiotics"}
	notesAliases       = []string{"notes"}
)
