package models

type ImportStatus string

const (
	ImportCompleted        ImportStatus = "completed"
	ImportValidationFailed ImportStatus = "validation_failed"
)

// Spreadsheet layout of an exported answer key.
const (
	SheetModules = "Modules"
	SheetRows    = "Rows"
)

var (
	ModuleSheetHeaders = []string{"Module", "Name", "Answer Kind", "Option Count", "Point Weight"}
	RowSheetHeaders    = []string{"Module", "Name", "Answer", "Feedback"}
)

// ImportValidationError points at one bad spreadsheet cell. Row is 1-based as shown by
// spreadsheet programs.
type ImportValidationError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}
