package sheets

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

type appendResponse struct {
	SpreadsheetID string        `json:"spreadsheetId"`
	TableRange    string        `json:"tableRange"`
	Updates       updateSummary `json:"updates"`
}

type updateSummary struct {
	UpdatedRange string `json:"updatedRange"`
	UpdatedRows  int    `json:"updatedRows"`
	UpdatedCells int    `json:"updatedCells"`
}
