package application

import "sort"

type Statistics struct {
	TotalApplications    int `json:"totalApplications"`
	PendingApplications  int `json:"pendingApplications"`
	AcceptedApplications int `json:"acceptedApplications"`
	RejectedApplications int `json:"rejectedApplications"`
	TotalUsers           int `json:"totalUsers"`
	TotalStudents        int `json:"totalStudents"`
}

type ProgramStat struct {
	Program string `json:"program"`
	Count   int    `json:"count"`
}

type Dashboard struct {
	Statistics         Statistics    `json:"statistics"`
	RecentApplications []Application `json:"recentApplications"`
	ProgramStats       []ProgramStat `json:"programStats"`
}

const RecentLimit = 5

// ApplyStatusCounts fills the application counters. Total is derived from the
// per-status counts so it always equals their sum.
func (s *Statistics) ApplyStatusCounts(counts map[Status]int) {
	s.PendingApplications = counts[StatusPending]
	s.AcceptedApplications = counts[StatusAccepted]
	s.RejectedApplications = counts[StatusRejected]
	s.TotalApplications = s.PendingApplications + s.AcceptedApplications + s.RejectedApplications
}

// SortProgramStats orders by count desc, then program name asc.
func SortProgramStats(stats []ProgramStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Program < stats[j].Program
	})
}
