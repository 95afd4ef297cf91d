package application

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further decision can be taken on the application.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

type StudyMode string

const (
	StudyFullTime StudyMode = "FULLTIME"
	StudyPartTime StudyMode = "PARTTIME"
	StudyOnline   StudyMode = "ONLINE"
	StudyHybrid   StudyMode = "HYBRID"
)

func (m StudyMode) IsValid() bool {
	switch m {
	case StudyFullTime, StudyPartTime, StudyOnline, StudyHybrid:
		return true
	default:
		return false
	}
}

const MinCourses = 3

var (
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStudentNotFound   = errors.New("student not found")
)

type Application struct {
	ID                        string        `json:"id"`
	StudentID                 string        `json:"studentId"`
	Program                   string        `json:"program"`
	Status                    Status        `json:"status"`
	SubmittedAt               time.Time     `json:"submittedAt"`
	PersonalStatement         string        `json:"personalStatement"`
	PreviousEducation         string        `json:"previousEducation"`
	Courses                   []string      `json:"courses"`
	ExpectedGrade             string        `json:"expectedGrade"`
	CurrentGPA                *float64      `json:"currentGPA"`
	PhoneNumber               string        `json:"phoneNumber"`
	EmergencyContact          *string       `json:"emergencyContact"`
	EmergencyPhone            *string       `json:"emergencyPhone"`
	WorkExperience            *string       `json:"workExperience"`
	ExtracurricularActivities *string       `json:"extracurricularActivities"`
	ScholarshipNeeded         bool          `json:"scholarshipNeeded"`
	StartDate                 *time.Time    `json:"startDate"`
	StudyMode                 StudyMode     `json:"studyMode"`
	Accommodation             bool          `json:"accommodation"`
	Student                   *user.Summary `json:"student,omitempty"`
}

// SubmitRequest is the wire shape posted by the application wizard.
// GPA and start date arrive either typed or as the raw form strings.
type SubmitRequest struct {
	Program                   string     `json:"program" binding:"required,program"`
	PersonalStatement         string     `json:"personalStatement" binding:"required,notblank,max=2000"`
	PreviousEducation         string     `json:"previousEducation" binding:"required,notblank,max=500"`
	Courses                   []string   `json:"courses" binding:"required,min=3,courses"`
	ExpectedGrade             string     `json:"expectedGrade" binding:"required,grade"`
	CurrentGPA                FlexFloat  `json:"currentGPA" binding:"omitempty,gte=0,lte=4"`
	PhoneNumber               string     `json:"phoneNumber" binding:"required,notblank,max=32"`
	EmergencyContact          string     `json:"emergencyContact" binding:"omitempty,max=100"`
	EmergencyPhone            string     `json:"emergencyPhone" binding:"omitempty,max=32"`
	WorkExperience            string     `json:"workExperience" binding:"omitempty,max=2000"`
	ExtracurricularActivities string     `json:"extracurricularActivities" binding:"omitempty,max=2000"`
	ScholarshipNeeded         bool       `json:"scholarshipNeeded"`
	StartDate                 FlexDate   `json:"startDate"`
	StudyMode                 StudyMode  `json:"studyMode" binding:"omitempty,studymode"`
	Accommodation             bool       `json:"accommodation"`
	StudentID                 string     `json:"-"`
	SubmittedAt               *time.Time `json:"-"`
}

type UpdateStatusRequest struct {
	ID     string `json:"id" binding:"required,uuid"`
	Status Status `json:"status" binding:"required,decision"`
}

// Enqueue builds the outbox job written in the same transaction as a change to
// app. Returning nil skips the job. app.Student is populated.
type Enqueue func(app Application) (*job.CreateRequest, error)

type ListFilter struct {
	StudentID *string
	Status    *Status
	Limit     int
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// TrimCourses returns the trimmed course names. ok is false when a name is
// blank or two names collide once trimmed.
func TrimCourses(in []string) (out []string, ok bool) {
	out = make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	ok = true

	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			ok = false
			continue
		}
		if _, dup := seen[c]; dup {
			ok = false
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	return out, ok
}

// NewFromSubmitRequest builds a PENDING application owned by req.StudentID.
func NewFromSubmitRequest(req SubmitRequest) Application {
	now := time.Now().UTC()
	if req.SubmittedAt != nil {
		now = req.SubmittedAt.UTC()
	}

	mode := req.StudyMode
	if mode == "" {
		mode = StudyFullTime
	}

	courses, _ := TrimCourses(req.Courses)

	return Application{
		ID:                        uuid.NewString(),
		StudentID:                 req.StudentID,
		Program:                   req.Program,
		Status:                    StatusPending,
		SubmittedAt:               now,
		PersonalStatement:         strings.TrimSpace(req.PersonalStatement),
		PreviousEducation:         strings.TrimSpace(req.PreviousEducation),
		Courses:                   courses,
		ExpectedGrade:             req.ExpectedGrade,
		CurrentGPA:                req.CurrentGPA.Ptr(),
		PhoneNumber:               strings.TrimSpace(req.PhoneNumber),
		EmergencyContact:          optional(req.EmergencyContact),
		EmergencyPhone:            optional(req.EmergencyPhone),
		WorkExperience:            optional(req.WorkExperience),
		ExtracurricularActivities: optional(req.ExtracurricularActivities),
		ScholarshipNeeded:         req.ScholarshipNeeded,
		StartDate:                 req.StartDate.Ptr(),
		StudyMode:                 mode,
		Accommodation:             req.Accommodation,
	}
}

// Transition checks a decision against the current status.
// changed is false when the application already holds the target status.
func Transition(current, target Status) (changed bool, err error) {
	if current == target {
		return false, nil
	}
	if current != StatusPending {
		return false, ErrInvalidTransition
	}
	if target != StatusAccepted && target != StatusRejected {
		return false, ErrInvalidTransition
	}
	return true, nil
}

// FlexFloat accepts a JSON number, a numeric string or an empty string/null.
type FlexFloat struct {
	Value *float64
}

func (f FlexFloat) Ptr() *float64 { return f.Value }

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		f.Value = nil
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		unq, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(unq)
		if raw == "" {
			f.Value = nil
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return &FormatError{Field: "currentGPA", Value: raw}
	}
	f.Value = &v
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(*f.Value, 'f', -1, 64)), nil
}

// FlexDate accepts RFC3339 timestamps, bare YYYY-MM-DD dates, or empty/null.
type FlexDate struct {
	Value *time.Time
}

func (d FlexDate) Ptr() *time.Time { return d.Value }

func (d *FlexDate) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		d.Value = nil
		return nil
	}
	s, err := strconv.Unquote(raw)
	if err != nil {
		return &FormatError{Field: "startDate", Value: raw}
	}
	t, ok, err := ParseDate(s)
	if err != nil {
		return &FormatError{Field: "startDate", Value: s}
	}
	if !ok {
		d.Value = nil
		return nil
	}
	d.Value = &t
	return nil
}

func (d FlexDate) MarshalJSON() ([]byte, error) {
	if d.Value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Value.UTC().Format(time.RFC3339))), nil
}

// ParseDate parses a form date. ok is false for an empty input.
func ParseDate(s string) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err = time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true, nil
	}
	return time.Time{}, false, err
}

type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return "invalid " + e.Field + ": " + strconv.Quote(e.Value)
}
