package actions

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestOutcomeConstructors(t *testing.T) {
	tests := []struct {
		name         string
		outcome      Outcome
		status       Status
		completed    bool
		continuation bool
	}{
		{"success", Success("r", "s"), StatusSuccess, true, false},
		{"failure", Failure(errors.New("boom"), "s"), StatusFailure, true, false},
		{"awaiting", Awaiting("q", "s", nil), StatusAwaitingInput, false, true},
		{"in progress", InProgress("p", "s", nil), StatusInProgress, false, true},
		{"noop", Noop("nothing"), "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.outcome.Status != tt.status {
				t.Errorf("status = %q, want %q", tt.outcome.Status, tt.status)
			}
			if tt.outcome.IsCompleted() != tt.completed {
				t.Errorf("IsCompleted = %v, want %v", tt.outcome.IsCompleted(), tt.completed)
			}
			if tt.outcome.NeedsContinuation() != tt.continuation {
				t.Errorf("NeedsContinuation = %v, want %v", tt.outcome.NeedsContinuation(), tt.continuation)
			}
			if tt.outcome.ID == "" {
				t.Error("outcome has no id")
			}
		})
	}
}

func TestOutcomeIDsAreUnique(t *testing.T) {
	a, b := Success(nil, "a"), Success(nil, "b")
	if a.ID == b.ID {
		t.Errorf("two outcomes share id %s", a.ID)
	}
}

func TestFailureErrorText(t *testing.T) {
	if got := Failure(errors.New("boom"), "summary").Error; got != "boom" {
		t.Errorf("Error = %q, want boom", got)
	}
	if got := Failure(nil, "summary").Error; got != "summary" {
		t.Errorf("Error = %q, want the summary", got)
	}
	if got := Failure(nil, "").Error; got == "" {
		t.Error("a failure must carry an error text")
	}
}

func TestOutcomeCopies(t *testing.T) {
	state := map[string]string{"offset": "10"}
	o := InProgress("x", "y", state)
	state["offset"] = "20"
	if o.StateData["offset"] != "10" {
		t.Error("state data shares memory with the caller's map")
	}

	resumed := o.WithID("fixed")
	if resumed.ID != "fixed" || o.ID == "fixed" {
		t.Errorf("WithID should copy: original %s, copy %s", o.ID, resumed.ID)
	}
	if o.WithID("").ID != o.ID {
		t.Error("WithID with an empty id should keep the original")
	}

	withDoc := o.WithDocuments(Document{Name: "a.png"})
	if len(withDoc.Documents) != 1 || len(o.Documents) != 0 {
		t.Error("WithDocuments should not modify the original")
	}
}

func TestOutcomeJSON(t *testing.T) {
	data, err := json.Marshal(Noop("No action taken"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"status"`) {
		t.Errorf("no-op outcome should omit its status: %s", data)
	}

	data, err = json.Marshal(Success("done", "ok").WithDocuments(Document{Name: "shot.png"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"SUCCESS"`) || !strings.Contains(string(data), `"actionId"`) {
		t.Errorf("unexpected encoding: %s", data)
	}
	if strings.Contains(string(data), "shot.png") {
		t.Errorf("documents should not be serialised: %s", data)
	}
}
