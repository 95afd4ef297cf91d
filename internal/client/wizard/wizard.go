// Package wizard is the state machine behind the four-step application form.
// Reduce is pure; Controller adds the submission side effect.
package wizard

import (
	"strconv"
	"strings"

	"github.com/geocoder89/admissionhub/internal/client/apiclient"
	"github.com/geocoder89/admissionhub/internal/domain/application"
)

type Step int

const (
	Step1ProgramAndCourses Step = iota + 1
	Step2Academic
	Step3PersonalContact
	Step4Review
)

func (s Step) String() string {
	switch s {
	case Step1ProgramAndCourses:
		return "program_and_courses"
	case Step2Academic:
		return "academic"
	case Step3PersonalContact:
		return "personal_contact"
	case Step4Review:
		return "review"
	default:
		return "unknown"
	}
}

// Draft is every field as the user typed it. GPA and start date stay strings
// until Submission.
type Draft struct {
	Program                   string
	Courses                   []string
	PersonalStatement         string
	PreviousEducation         string
	ExpectedGrade             string
	CurrentGPA                string
	Email                     string
	PhoneNumber               string
	EmergencyContact          string
	EmergencyPhone            string
	WorkExperience            string
	ExtracurricularActivities string
	ScholarshipNeeded         bool
	StartDate                 string
	StudyMode                 string
	Accommodation             bool
}

func emptyDraft() Draft {
	return Draft{Courses: []string{}, StudyMode: string(application.StudyFullTime)}
}

func (d Draft) HasCourse(course string) bool {
	for _, c := range d.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// Submission coerces the draft into the request body. An unparsable GPA or
// date is sent as absent; the e-mail never leaves the client.
func (d Draft) Submission() apiclient.Submission {
	s := apiclient.Submission{
		Program:                   d.Program,
		PersonalStatement:         d.PersonalStatement,
		PreviousEducation:         d.PreviousEducation,
		Courses:                   append([]string(nil), d.Courses...),
		ExpectedGrade:             d.ExpectedGrade,
		PhoneNumber:               d.PhoneNumber,
		EmergencyContact:          d.EmergencyContact,
		EmergencyPhone:            d.EmergencyPhone,
		WorkExperience:            d.WorkExperience,
		ExtracurricularActivities: d.ExtracurricularActivities,
		ScholarshipNeeded:         d.ScholarshipNeeded,
		StudyMode:                 d.StudyMode,
		Accommodation:             d.Accommodation,
	}

	if raw := strings.TrimSpace(d.CurrentGPA); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			s.CurrentGPA = &v
		}
	}

	if t, ok, err := application.ParseDate(d.StartDate); err == nil && ok {
		s.StartDate = &t
	}

	return s
}

type State struct {
	Step       Step
	Draft      Draft
	Submitting bool
	Err        error
	// Result is the last application created by this wizard.
	Result *application.Application

	catalog application.Catalog
}

func Initial() State {
	return InitialWith(application.DefaultCatalog())
}

// InitialWith starts the wizard against a catalog fetched from GET /programs.
func InitialWith(c application.Catalog) State {
	return State{Step: Step1ProgramAndCourses, Draft: emptyDraft(), catalog: c}
}

func (s State) Catalog() application.Catalog { return s.catalog }

func notBlank(v string) bool { return strings.TrimSpace(v) != "" }

// StepComplete is the guard for leaving step.
func StepComplete(step Step, d Draft) bool {
	switch step {
	case Step1ProgramAndCourses:
		return d.Program != "" && len(d.Courses) >= application.MinCourses
	case Step2Academic:
		return notBlank(d.PersonalStatement) && notBlank(d.PreviousEducation) && notBlank(d.ExpectedGrade)
	case Step3PersonalContact:
		return notBlank(d.Email) && notBlank(d.PhoneNumber)
	case Step4Review:
		return true
	default:
		return false
	}
}
