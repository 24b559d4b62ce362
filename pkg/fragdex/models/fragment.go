package models

// FragmentType identifies the kind of content a fragment carries.
type FragmentType string

const (
	FragmentFullTable   FragmentType = "full_table"
	FragmentTableChunk  FragmentType = "table_chunk"
	FragmentNamedTable  FragmentType = "named_table"
	FragmentChart       FragmentType = "chart"
	FragmentImage       FragmentType = "image"
	FragmentMacroNotice FragmentType = "macro_notice"
	FragmentSummary     FragmentType = "summary"
)

// Metadata carries provenance for a fragment. Every fragment emitted for a
// document holds the same FileHash, computed once per parse.
type Metadata struct {
	FilePath    string         `json:"file_path"`
	SheetName   string         `json:"sheet_name"`
	SheetNumber int            `json:"sheet_number"` // 1-based; 0 for workbook-level fragments
	Type        FragmentType   `json:"fragment_type"`
	FileHash    string         `json:"file_hash"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Map flattens the metadata into a payload map. Extra keys never override
// the reserved keys.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["file_path"] = m.FilePath
	out["sheet_name"] = m.SheetName
	out["sheet_number"] = m.SheetNumber
	out["fragment_type"] = string(m.Type)
	out["file_hash"] = m.FileHash
	return out
}

// Fragment is one normalized unit of extracted text with provenance.
type Fragment struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}
