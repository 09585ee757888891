package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AnalysisResponse - result of one upload
//
// Saved is false when the analysis succeeded but the local history write
// failed; Warning then carries the reason.
type AnalysisResponse struct {
	Status  string         `json:"status"`
	Saved   bool           `json:"saved"`
	Warning string         `json:"warning,omitempty"`
	Data    AnalysisRecord `json:"data"`
}

// HistorySource - where a history view was read from
type HistorySource string

const (
	HistorySourceRemote HistorySource = "remote"
	HistorySourceLocal  HistorySource = "local"
)

type HistoryListResponse struct {
	Status  string           `json:"status"`
	Source  HistorySource    `json:"source"`
	Warning string           `json:"warning,omitempty"`
	Data    []AnalysisRecord `json:"data"`
}

type HistoryDetailEnvelope struct {
	Status string          `json:"status"`
	Source HistorySource   `json:"source"`
	Data   *AnalysisRecord `json:"data"`
}

type HistoryDeleteResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
}

type ExplainResponse struct {
	Status      string `json:"status"`
	Key         string `json:"key"`
	Model       string `json:"model"`
	Explanation string `json:"explanation"`
}
