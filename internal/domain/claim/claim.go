// Package claim defines the claim-side entities of the citation pipeline: a
// patent claim decomposed into independently matchable elements, and the port
// through which the pipeline obtains claims from the drafting workspace.
package claim

import (
	"context"
	"strings"

	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Element is one decomposed limitation of a patent claim.  Elements are
// matched independently against prior art; ID is stable within a claim and
// Ordinal preserves the original claim order used as the ranking tiebreak.
type Element struct {
	ID         string `json:"id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	ParsedText string `json:"parsed_text,omitempty"`
}

// Validate checks that the element is usable by the matcher.
func (e Element) Validate() error {
	if e.ID == "" {
		return errors.New(errors.ErrCodeInvalidElement, "element id is empty")
	}
	if strings.TrimSpace(e.Text) == "" {
		return errors.New(errors.ErrCodeInvalidElement, "element text is empty").
			WithDetail("element_id=" + e.ID)
	}
	return nil
}

// MatchText returns the text the matcher should operate on: the parsed form
// when the decomposition step produced one, otherwise the raw element text.
func (e Element) MatchText() string {
	if e.ParsedText != "" {
		return e.ParsedText
	}
	return e.Text
}

// Claim is a patent claim together with its decomposed elements.
type Claim struct {
	ID       common.ID `json:"id"`
	Number   int       `json:"number"`
	Text     string    `json:"text"`
	Elements []Element `json:"elements"`
}

// ElementByID returns the element with the given id, or false.
func (c *Claim) ElementByID(id string) (Element, bool) {
	for _, e := range c.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// SelectElements returns the elements named by ids in claim order.  An empty
// ids slice selects every element.  Unknown ids are reported, not ignored,
// so a stale scope restriction surfaces instead of silently shrinking a job.
func (c *Claim) SelectElements(ids []string) ([]Element, error) {
	if len(ids) == 0 {
		out := make([]Element, len(c.Elements))
		copy(out, c.Elements)
		return out, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]Element, 0, len(ids))
	for _, e := range c.Elements {
		if want[e.ID] {
			out = append(out, e)
			delete(want, e.ID)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for id := range want {
			missing = append(missing, id)
		}
		return nil, errors.New(errors.ErrCodeInvalidElement, "unknown claim elements").
			WithDetail("element_ids=" + strings.Join(missing, ","))
	}
	return out, nil
}

// Source supplies the claim under analysis for a search session.  It is the
// boundary to the drafting workspace; implementations live outside the
// pipeline.  A missing or unreadable claim is reported with
// ErrCodeClaimUnavailable.
type Source interface {
	GetClaim(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) (*Claim, error)
}

//Personal.AI order the ending
