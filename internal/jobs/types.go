package jobs

type JobType string

const (
	JobSubmissionReceipt JobType = "application.submitted"
	JobDecisionNotice    JobType = "application.decided"
	JobVerifyEmail       JobType = "user.verify_email"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobSubmissionReceipt, JobDecisionNotice, JobVerifyEmail:
		return true
	default:
		return false
	}
}
