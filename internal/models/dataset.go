package models

// DiffArtifact describes the tool output stored for one revision pair.
type DiffArtifact struct {
	DocID    string `json:"doc_id"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	Depth    int    `json:"depth"`
	OldRevID int64  `json:"old_revid"`
	NewRevID int64  `json:"new_revid"`
}

// EditType classifies an aligned sentence pair.
type EditType string

// Edit types. Unchanged units are produced by the aligner but are only
// written to the dataset on request.
const (
	EditAdd       EditType = "A"
	EditDelete    EditType = "D"
	EditReplace   EditType = "R"
	EditUnchanged EditType = "N"
)

// SentencePair is the final dataset record.
type SentencePair struct {
	DocID            string   `json:"doc_id"`
	Title            string   `json:"title,omitempty"`
	OriginalSentence string   `json:"before_sentence"`
	RevisedSentence  string   `json:"after_sentence"`
	EditType         EditType `json:"edit_type"`
	BeforeEdits      []string `json:"before_edits,omitempty"`
	AfterEdits       []string `json:"after_edits,omitempty"`
	RevisionDepth    int      `json:"revision_depth"`
	OldRevID         int64    `json:"old_revid"`
	NewRevID         int64    `json:"new_revid"`
}

// IsEdit reports whether the pair records a change.
func (p SentencePair) IsEdit() bool {
	return p.EditType != EditUnchanged
}
