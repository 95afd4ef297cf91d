package application

import "strings"

type Program struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Courses []string `json:"courses"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Catalog struct {
	Programs        []Program `json:"programs"`
	StudyModes      []Option  `json:"studyModes"`
	ExpectedGrades  []string  `json:"expectedGrades"`
	EducationLevels []Option  `json:"educationLevels"`
	MinCourses      int       `json:"minCourses"`
}

var programs = []Program{
	{ID: "computer-science", Name: "Computer Science", Courses: []string{"Programming Fundamentals", "Data Structures", "Algorithms", "Database Systems", "Software Engineering", "Machine Learning"}},
	{ID: "medicine", Name: "Medicine", Courses: []string{"Anatomy", "Physiology", "Biochemistry", "Pathology", "Pharmacology", "Clinical Medicine"}},
	{ID: "engineering", Name: "Engineering", Courses: []string{"Mathematics", "Physics", "Engineering Design", "Materials Science", "Thermodynamics", "Circuit Analysis"}},
	{ID: "business", Name: "Business Administration", Courses: []string{"Management", "Marketing", "Finance", "Economics", "Business Strategy", "Operations Management"}},
	{ID: "psychology", Name: "Psychology", Courses: []string{"General Psychology", "Cognitive Psychology", "Social Psychology", "Research Methods", "Statistics", "Abnormal Psychology"}},
}

var studyModes = []Option{
	{Value: string(StudyFullTime), Label: "Full-time"},
	{Value: string(StudyPartTime), Label: "Part-time"},
	{Value: string(StudyOnline), Label: "Online"},
	{Value: string(StudyHybrid), Label: "Hybrid"},
}

var expectedGrades = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "Pass"}

var educationLevels = []Option{
	{Value: "high_school", Label: "High School Diploma"},
	{Value: "associate", Label: "Associate Degree"},
	{Value: "bachelor", Label: "Bachelor's Degree"},
	{Value: "master", Label: "Master's Degree"},
	{Value: "doctoral", Label: "Doctoral Degree"},
	{Value: "professional", Label: "Professional Certification"},
	{Value: "other", Label: "Other"},
}

// DefaultCatalog returns a copy so callers can't mutate the shared tables.
func DefaultCatalog() Catalog {
	ps := make([]Program, 0, len(programs))
	for _, p := range programs {
		ps = append(ps, Program{ID: p.ID, Name: p.Name, Courses: append([]string(nil), p.Courses...)})
	}

	return Catalog{
		Programs:        ps,
		StudyModes:      append([]Option(nil), studyModes...),
		ExpectedGrades:  append([]string(nil), expectedGrades...),
		EducationLevels: append([]Option(nil), educationLevels...),
		MinCourses:      MinCourses,
	}
}

func (c Catalog) Program(id string) (Program, bool) {
	for _, p := range c.Programs {
		if p.ID == id {
			return p, true
		}
	}
	return Program{}, false
}

func (p Program) HasCourse(course string) bool {
	for _, c := range p.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// IsKnownProgram matches a catalog id, or a display name case-insensitively.
func IsKnownProgram(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, p := range programs {
		if p.ID == v || strings.EqualFold(p.Name, v) {
			return true
		}
	}
	return false
}

func IsExpectedGrade(v string) bool {
	for _, g := range expectedGrades {
		if g == v {
			return true
		}
	}
	return false
}
