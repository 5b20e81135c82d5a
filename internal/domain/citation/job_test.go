package citation

import (
	"testing"

	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

var testScope = common.Scope{TenantID: "t1", ProjectID: "p1", UserID: "u1"}

func newTestJob() *Job {
	return NewJob(testScope, "search-1", "US111A", nil)
}

func TestNewJobStartsPending(t *testing.T) {
	j := newTestJob()
	if j.Status != JobPending {
		t.Errorf("status = %s, want pending", j.Status)
	}
	if j.ID == "" {
		t.Error("job must receive an id")
	}
	if j.Scope != testScope {
		t.Error("scope must be carried on the job")
	}
}

func TestJobLifecycleHappyPath(t *testing.T) {
	j := newTestJob()
	if err := j.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if j.Status != JobProcessing {
		t.Fatalf("status = %s, want processing", j.Status)
	}

	result := &JobResult{Matches: []*Match{{ElementID: "e1", Reference: "US111A", Score: ScoreOf(0.9)}}}
	if err := j.Complete(result); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if j.Status != JobCompleted || j.Result == nil || j.Error != "" {
		t.Errorf("completed job: status=%s result=%v error=%q", j.Status, j.Result, j.Error)
	}
}

func TestJobFailClearsResult(t *testing.T) {
	j := newTestJob()
	_ = j.Start()
	if err := j.Fail("reference document unavailable"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if j.Status != JobFailed || j.Result != nil || j.Error == "" {
		t.Errorf("failed job: status=%s result=%v error=%q", j.Status, j.Result, j.Error)
	}
}

func TestJobFailFromPending(t *testing.T) {
	j := newTestJob()
	if err := j.Fail("claim unavailable"); err != nil {
		t.Errorf("pending job should be failable: %v", err)
	}
}

func TestTerminalStatesAreSticky(t *testing.T) {
	j := newTestJob()
	_ = j.Start()
	_ = j.Fail("timeout")

	if err := j.Start(); !errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
		t.Errorf("Start on failed job: %v", err)
	}
	result := &JobResult{Matches: []*Match{{ElementID: "e1", Reference: "US111A"}}}
	if err := j.Complete(result); !errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
		t.Errorf("Complete on failed job: %v", err)
	}
	if err := j.Fail("again"); !errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
		t.Errorf("Fail on failed job: %v", err)
	}
	if j.Status != JobFailed || j.Error != "timeout" {
		t.Error("terminal state must be unchanged by rejected transitions")
	}
}

func TestCompleteRequiresProcessing(t *testing.T) {
	j := newTestJob()
	result := &JobResult{Matches: []*Match{{ElementID: "e1", Reference: "US111A"}}}
	if err := j.Complete(result); !errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
		t.Errorf("Complete on pending job: %v", err)
	}
}

func TestCompleteRequiresResult(t *testing.T) {
	j := newTestJob()
	_ = j.Start()
	if err := j.Complete(nil); !errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
		t.Errorf("Complete(nil): %v", err)
	}
	if err := j.Complete(&JobResult{}); !errors.IsCode(err, errors.ErrCodeJobStateInvalid) {
		t.Errorf("Complete(empty): %v", err)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !JobCompleted.Terminal() || !JobFailed.Terminal() {
		t.Error("completed and failed are terminal")
	}
	if JobPending.Terminal() || JobProcessing.Terminal() {
		t.Error("pending and processing are not terminal")
	}
	if !JobPending.Valid() || JobStatus("bogus").Valid() {
		t.Error("Valid() misclassifies")
	}
}

//Personal.AI order the ending
