package application

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name        string
		current     Status
		target      Status
		wantChanged bool
		wantErr     error
	}{
		{"pending_to_accepted", StatusPending, StatusAccepted, true, nil},
		{"pending_to_rejected", StatusPending, StatusRejected, true, nil},
		{"same_status_noop", StatusAccepted, StatusAccepted, false, nil},
		{"accepted_is_terminal", StatusAccepted, StatusRejected, false, ErrInvalidTransition},
		{"rejected_is_terminal", StatusRejected, StatusPending, false, ErrInvalidTransition},
		{"pending_to_unknown", StatusPending, Status("ARCHIVED"), false, ErrInvalidTransition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			changed, err := Transition(tt.current, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Fatalf("changed: got %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestTrimCourses(t *testing.T) {
	tests := []struct {
		name   string
		in     []string
		want   []string
		wantOK bool
	}{
		{"clean", []string{"Algorithms", "Data Structures"}, []string{"Algorithms", "Data Structures"}, true},
		{"padded", []string{" Algorithms ", "Data Structures"}, []string{"Algorithms", "Data Structures"}, true},
		{"blank_entry", []string{"   ", "Algorithms"}, []string{"Algorithms"}, false},
		{"equal_after_trim", []string{"Algorithms", " Algorithms", "Algorithms "}, []string{"Algorithms"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TrimCourses(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestSubmitRequest_FlexibleFields(t *testing.T) {
	body := `{
		"program": "medicine",
		"courses": ["Anatomy","Physiology","Pathology"],
		"currentGPA": "3.5",
		"startDate": "2026-09-01",
		"emergencyContact": "   "
	}`

	var req SubmitRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if req.CurrentGPA.Value == nil || *req.CurrentGPA.Value != 3.5 {
		t.Fatalf("expected GPA 3.5, got %v", req.CurrentGPA.Value)
	}
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if req.StartDate.Value == nil || !req.StartDate.Value.Equal(want) {
		t.Fatalf("expected start date %v, got %v", want, req.StartDate.Value)
	}

	req.StudentID = "student-1"
	app := NewFromSubmitRequest(req)

	if app.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", app.Status)
	}
	if app.StudyMode != StudyFullTime {
		t.Fatalf("expected default FULLTIME, got %s", app.StudyMode)
	}
	if app.EmergencyContact != nil {
		t.Fatalf("blank optional should be nil, got %q", *app.EmergencyContact)
	}
	if app.StudentID != "student-1" || app.ID == "" || app.SubmittedAt.IsZero() {
		t.Fatalf("unexpected identity fields: %+v", app)
	}
}

func TestSubmitRequest_EmptyGPAAndDate(t *testing.T) {
	var req SubmitRequest
	if err := json.Unmarshal([]byte(`{"currentGPA":"","startDate":""}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.CurrentGPA.Value != nil || req.StartDate.Value != nil {
		t.Fatalf("expected nil values, got %v %v", req.CurrentGPA.Value, req.StartDate.Value)
	}
}

func TestSubmitRequest_BadGPA(t *testing.T) {
	var req SubmitRequest
	err := json.Unmarshal([]byte(`{"currentGPA":"four"}`), &req)

	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Field != "currentGPA" {
		t.Fatalf("expected field currentGPA, got %s", fe.Field)
	}
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Programs) != 5 {
		t.Fatalf("expected 5 programs, got %d", len(c.Programs))
	}

	c.Programs[0].Courses[0] = "mutated"
	if DefaultCatalog().Programs[0].Courses[0] == "mutated" {
		t.Fatalf("DefaultCatalog must return a copy")
	}

	if !IsKnownProgram("Computer Science") || !IsKnownProgram("business") {
		t.Fatalf("expected id and name lookups to succeed")
	}
	if IsKnownProgram("astrology") {
		t.Fatalf("unknown program accepted")
	}
	if !IsExpectedGrade("Pass") || IsExpectedGrade("F") {
		t.Fatalf("unexpected grade lookup result")
	}
}
