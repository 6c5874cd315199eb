package internal

type SourceKind string

const (
	SourceAuto     SourceKind = "auto"
	SourceHTML     SourceKind = "html"
	SourceText     SourceKind = "text"
	SourceMarkdown SourceKind = "markdown"
	SourcePDF      SourceKind = "pdf"
)

// StatusRecord is one rover status report recovered from a text block.
// Date is "" when the block carried no parseable date.
type StatusRecord struct {
	Sol        int     `json:"sol" yaml:"sol"`
	Date       string  `json:"date" yaml:"date"`
	EnergyWh   int     `json:"wh" yaml:"wh"`
	TauFactor  float64 `json:"tauFactor" yaml:"tauFactor"`
	DustFactor float64 `json:"saDustFactor" yaml:"saDustFactor"`
}

type StoredRecord struct {
	StatusRecord
	Source    string
	RunID     string
	UpdatedAt string
}

type RunCounts struct {
	Blocks     int `json:"blocks"`
	Candidates int `json:"candidates"`
	Matched    int `json:"matched"`
	Skipped    int `json:"skipped"`
}

type RunRow struct {
	ID        string
	Source    string
	Counts    RunCounts
	Timings   map[string]float64
	CreatedAt string
}
