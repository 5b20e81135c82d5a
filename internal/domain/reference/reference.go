// Package reference defines the prior-art document entities and the port to
// the document source (USPTO sync, uploads).  The pipeline consumes reference
// text through this boundary and treats ErrCodeReferenceUnavailable as its
// only failure mode.
package reference

import (
	"context"
	"strings"

	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Section is one named portion of a reference document, in document order.
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Document is a prior-art reference resolved to searchable text.
type Document struct {
	Number   string    `json:"number"`
	Title    string    `json:"title,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	FullText string    `json:"full_text,omitempty"`
}

// Searchable reports whether the document carries any text the matcher can
// work with.
func (d *Document) Searchable() bool {
	if d == nil {
		return false
	}
	if strings.TrimSpace(d.FullText) != "" {
		return true
	}
	for _, s := range d.Sections {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

// Text returns the document's full text, synthesizing it from sections when
// only sectioned text is available.
func (d *Document) Text() string {
	if d.FullText != "" {
		return d.FullText
	}
	var sb strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Unavailable constructs the canonical error for a reference that cannot be
// resolved to searchable text.
func Unavailable(number string, cause error) error {
	e := errors.New(errors.ErrCodeReferenceUnavailable, "reference document unavailable").
		WithDetail("reference=" + number)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

// Source resolves reference numbers to documents.  Implementations wrap the
// external document stores (object storage, USPTO cache); they return an
// ErrCodeReferenceUnavailable error for missing or corrupt documents and
// never invent empty ones.
type Source interface {
	GetDocument(ctx context.Context, scope common.Scope, number string) (*Document, error)
}

//Personal.AI order the ending
