package domain

// Postil is one sermon record of the serial, as segmented from the OCR
// transcript. Records are immutable after ingestion except for IsActive,
// which the repository owns.
type Postil struct {
	// ID is the opaque repository key, assigned at ingestion.
	ID string `json:"id,omitempty"`

	// PostilNumber is the sequence number printed in the serial. Zero means
	// it could not be recovered or interpolated.
	PostilNumber int `json:"postil_number"`

	Title string `json:"title"`

	// BiblicalReferences is the ordered set of canonical references
	// (e.g. "Mt 4,1-11") this postil comments on. It is the join key.
	BiblicalReferences []string `json:"biblical_references"`

	// BiblicalRefsRaw is the citation block as printed, kept for auditing.
	BiblicalRefsRaw string `json:"biblical_refs_raw,omitempty"`

	// LiturgicalContext is the calendar label of the citation, e.g.
	// "Ned. I. postní".
	LiturgicalContext string `json:"liturgical_context,omitempty"`

	Year        int    `json:"year"`
	IssueNumber int    `json:"issue_number"`
	SourceRef   string `json:"source_ref"`

	// BiblicalText is the quoted scripture excerpt opening the sermon.
	BiblicalText string `json:"biblical_text,omitempty"`

	// Content is the commentary.
	Content string `json:"content"`

	IsActive bool `json:"is_active"`
}

// MatchResult pairs a stored postil with the reference that selected it.
type MatchResult struct {
	Postil

	// MatchedRef is the first of the postil's references that occurs in the
	// current readings.
	MatchedRef string `json:"matched_ref"`
}

// ImportReport summarizes a batched import. Batches fail independently.
type ImportReport struct {
	Inserted  int      `json:"inserted"`
	TotalSent int      `json:"total_sent"`
	Errors    []string `json:"errors,omitempty"`
}

// Success reports whether every batch was stored.
func (r *ImportReport) Success() bool {
	return len(r.Errors) == 0
}
