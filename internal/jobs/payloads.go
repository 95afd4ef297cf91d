package jobs

import "time"

// SubmissionReceiptPayload tells the student their application was received.
// Keep it ID-based plus the address; the worker doesn't reload the application.
type SubmissionReceiptPayload struct {
	ApplicationID string    `json:"applicationId"`
	StudentID     string    `json:"studentId"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Program       string    `json:"program"`
	SubmittedAt   time.Time `json:"submittedAt"`
	RequestID     string    `json:"requestId,omitempty"`
}

// DecisionNoticePayload carries an admin's ACCEPTED/REJECTED decision.
type DecisionNoticePayload struct {
	ApplicationID string `json:"applicationId"`
	StudentID     string `json:"studentId"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Program       string `json:"program"`
	Status        string `json:"status"`
	DecidedBy     string `json:"decidedBy,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
}

type VerifyEmailPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Link   string `json:"link"`
}
