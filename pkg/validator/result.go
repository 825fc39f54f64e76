package validator

import (
	"encoding/json"

	"github.com/sqlscope-dev/sqlscope/pkg/analyzer"
	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

// Error is one validation defect with a canonical tag.
//
// Location is a character offset into the original SQL text, -1 when
// unknown. The taxonomy category is always derived from the tag at read
// time; it is deliberately not a stored field, so it can never disagree
// with the tag.
type Error struct {
	Tag             taxonomy.Tag
	Message         string
	Location        int
	Context         string
	ErrorCode       string
	AffectedClauses []string
}

// Category returns the taxonomy category derived from the tag.
func (e Error) Category() taxonomy.Category { return e.Tag.Category() }

// MarshalJSON emits the stable wire shape: tag, message, and
// taxonomy_category always; optional fields only when present.
func (e Error) MarshalJSON() ([]byte, error) {
	var loc *int
	if e.Location >= 0 {
		loc = &e.Location
	}
	return json.Marshal(struct {
		Tag             string   `json:"tag"`
		Message         string   `json:"message"`
		Category        string   `json:"taxonomy_category"`
		Location        *int     `json:"location,omitempty"`
		Context         string   `json:"context,omitempty"`
		ErrorCode       string   `json:"error_code,omitempty"`
		AffectedClauses []string `json:"affected_clauses,omitempty"`
	}{
		Tag:             string(e.Tag),
		Message:         e.Message,
		Category:        string(e.Category()),
		Location:        loc,
		Context:         e.Context,
		ErrorCode:       e.ErrorCode,
		AffectedClauses: e.AffectedClauses,
	})
}

// newError builds an Error with the unknown-location sentinel set.
func newError(tag taxonomy.Tag, message string) Error {
	return Error{Tag: tag, Message: message, Location: -1}
}

// Result is the outcome of one validation call. Validity is derived from
// the error list and never stored separately.
type Result struct {
	SQL      string
	Errors   []Error
	Metadata *analyzer.Metadata
}

// Valid reports whether validation found no defects.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Tags returns the error tags in error order.
func (r Result) Tags() []taxonomy.Tag {
	out := make([]taxonomy.Tag, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Tag
	}
	return out
}

// Messages returns the error messages in error order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// MarshalJSON emits the stable result shape. The errors array preserves
// validation order; tags is the derived order-preserving view.
func (r Result) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []Error{}
	}
	tags := make([]string, len(errs))
	for i, e := range errs {
		tags[i] = string(e.Tag)
	}
	return json.Marshal(struct {
		Valid    bool               `json:"valid"`
		SQL      string             `json:"sql"`
		Errors   []Error            `json:"errors"`
		Tags     []string           `json:"tags"`
		Metadata *analyzer.Metadata `json:"query_metadata,omitempty"`
	}{
		Valid:    r.Valid(),
		SQL:      r.SQL,
		Errors:   errs,
		Tags:     tags,
		Metadata: r.Metadata,
	})
}
