package claim

import (
	"testing"

	"github.com/turtacn/CiteScope/pkg/errors"
)

func testClaim() *Claim {
	return &Claim{
		ID:     "claim-1",
		Number: 1,
		Text:   "A widget comprising a frame, a sensor, and a controller.",
		Elements: []Element{
			{ID: "e1", Ordinal: 0, Text: "a frame"},
			{ID: "e2", Ordinal: 1, Text: "a sensor", ParsedText: "sensor coupled to the frame"},
			{ID: "e3", Ordinal: 2, Text: "a controller"},
		},
	}
}

func TestElementValidate(t *testing.T) {
	if err := (Element{ID: "e1", Text: "a frame"}).Validate(); err != nil {
		t.Errorf("valid element rejected: %v", err)
	}
	if err := (Element{Text: "a frame"}).Validate(); !errors.IsCode(err, errors.ErrCodeInvalidElement) {
		t.Errorf("missing id: got %v", err)
	}
	if err := (Element{ID: "e1", Text: "   "}).Validate(); !errors.IsCode(err, errors.ErrCodeInvalidElement) {
		t.Errorf("blank text: got %v", err)
	}
}

func TestElementMatchText(t *testing.T) {
	e := Element{ID: "e1", Text: "raw", ParsedText: "parsed"}
	if e.MatchText() != "parsed" {
		t.Error("parsed text should win when present")
	}
	e.ParsedText = ""
	if e.MatchText() != "raw" {
		t.Error("raw text should be the fallback")
	}
}

func TestElementByID(t *testing.T) {
	c := testClaim()
	if e, ok := c.ElementByID("e2"); !ok || e.Text != "a sensor" {
		t.Errorf("ElementByID(e2) = %+v, %v", e, ok)
	}
	if _, ok := c.ElementByID("e9"); ok {
		t.Error("unknown id should not be found")
	}
}

func TestSelectElements(t *testing.T) {
	c := testClaim()

	all, err := c.SelectElements(nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("SelectElements(nil) = %d elements, err %v", len(all), err)
	}

	subset, err := c.SelectElements([]string{"e3", "e1"})
	if err != nil {
		t.Fatalf("SelectElements subset: %v", err)
	}
	// Claim order preserved regardless of request order.
	if subset[0].ID != "e1" || subset[1].ID != "e3" {
		t.Errorf("subset order = %s,%s; want e1,e3", subset[0].ID, subset[1].ID)
	}

	if _, err := c.SelectElements([]string{"e1", "nope"}); !errors.IsCode(err, errors.ErrCodeInvalidElement) {
		t.Errorf("unknown id should fail, got %v", err)
	}
}

//Personal.AI order the ending
