package wizard

import (
	"strconv"

	"github.com/geocoder89/admissionhub/internal/domain/application"
)

type Action interface{ isAction() }

type (
	SelectProgram struct{ Program string }
	ToggleCourse  struct{ Course string }
	SetField      struct {
		Field Field
		Value string
	}
	Advance         struct{}
	Retreat         struct{}
	SubmitStarted   struct{}
	SubmitSucceeded struct{ Application application.Application }
	SubmitFailed    struct{ Err error }
	Reset           struct{}
)

func (SelectProgram) isAction()   {}
func (ToggleCourse) isAction()    {}
func (SetField) isAction()        {}
func (Advance) isAction()         {}
func (Retreat) isAction()         {}
func (SubmitStarted) isAction()   {}
func (SubmitSucceeded) isAction() {}
func (SubmitFailed) isAction()    {}
func (Reset) isAction()           {}

// Field names a free-form draft input.
type Field string

const (
	FieldPersonalStatement         Field = "personalStatement"
	FieldPreviousEducation         Field = "previousEducation"
	FieldExpectedGrade             Field = "expectedGrade"
	FieldCurrentGPA                Field = "currentGPA"
	FieldEmail                     Field = "email"
	FieldPhoneNumber               Field = "phoneNumber"
	FieldEmergencyContact          Field = "emergencyContact"
	FieldEmergencyPhone            Field = "emergencyPhone"
	FieldWorkExperience            Field = "workExperience"
	FieldExtracurricularActivities Field = "extracurricularActivities"
	FieldScholarshipNeeded         Field = "scholarshipNeeded"
	FieldStartDate                 Field = "startDate"
	FieldStudyMode                 Field = "studyMode"
	FieldAccommodation             Field = "accommodation"
)

// Reduce returns the state after a. It never mutates s; the draft's course
// slice is copied on every change.
func Reduce(s State, a Action) State {
	// the form is frozen while a request is out
	if s.Submitting {
		switch a.(type) {
		case SubmitSucceeded, SubmitFailed:
		default:
			return s
		}
	}

	switch a := a.(type) {
	case SelectProgram:
		if a.Program == s.Draft.Program {
			return s
		}
		s.Draft.Program = a.Program
		s.Draft.Courses = []string{}
		return s

	case ToggleCourse:
		p, ok := s.catalog.Program(s.Draft.Program)
		if !ok || !p.HasCourse(a.Course) {
			return s
		}
		s.Draft.Courses = toggle(s.Draft.Courses, a.Course)
		return s

	case SetField:
		s.Draft = setField(s.Draft, a.Field, a.Value)
		return s

	case Advance:
		if s.Step < Step4Review && StepComplete(s.Step, s.Draft) {
			s.Step++
		}
		return s

	case Retreat:
		if s.Step > Step1ProgramAndCourses {
			s.Step--
		}
		return s

	case SubmitStarted:
		if s.Step != Step4Review {
			return s
		}
		s.Submitting = true
		s.Err = nil
		return s

	case SubmitSucceeded:
		app := a.Application
		next := InitialWith(s.catalog)
		next.Result = &app
		return next

	case SubmitFailed:
		s.Submitting = false
		s.Err = a.Err
		return s

	case Reset:
		return InitialWith(s.catalog)

	default:
		return s
	}
}

func toggle(courses []string, course string) []string {
	out := make([]string, 0, len(courses)+1)
	found := false
	for _, c := range courses {
		if c == course {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		out = append(out, course)
	}
	return out
}

func setField(d Draft, f Field, v string) Draft {
	switch f {
	case FieldPersonalStatement:
		d.PersonalStatement = v
	case FieldPreviousEducation:
		d.PreviousEducation = v
	case FieldExpectedGrade:
		d.ExpectedGrade = v
	case FieldCurrentGPA:
		d.CurrentGPA = v
	case FieldEmail:
		d.Email = v
	case FieldPhoneNumber:
		d.PhoneNumber = v
	case FieldEmergencyContact:
		d.EmergencyContact = v
	case FieldEmergencyPhone:
		d.EmergencyPhone = v
	case FieldWorkExperience:
		d.WorkExperience = v
	case FieldExtracurricularActivities:
		d.ExtracurricularActivities = v
	case FieldScholarshipNeeded:
		d.ScholarshipNeeded, _ = strconv.ParseBool(v)
	case FieldStartDate:
		d.StartDate = v
	case FieldStudyMode:
		d.StudyMode = v
	case FieldAccommodation:
		d.Accommodation, _ = strconv.ParseBool(v)
	}
	return d
}
