package notifications

import (
	"context"
	"fmt"
	"strings"
)

type Kind string

const (
	KindSubmissionReceipt Kind = "submission_receipt"
	KindDecision          Kind = "decision"
	KindVerifyEmail       Kind = "verify_email"
)

// Message is one outbound e-mail-like notification.
type Message struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

func SubmissionReceipt(to, name, program, applicationID string) Message {
	return Message{
		Kind:    KindSubmissionReceipt,
		To:      to,
		Name:    name,
		Subject: "We received your application",
		Body: fmt.Sprintf("Hi %s, your application %s for %s has been received and is pending review.",
			greet(name), applicationID, program),
	}
}

func Decision(to, name, program, status string) Message {
	verdict := "has been reviewed"
	switch status {
	case "ACCEPTED":
		verdict = "has been accepted. Congratulations!"
	case "REJECTED":
		verdict = "was not successful this time."
	}

	return Message{
		Kind:    KindDecision,
		To:      to,
		Name:    name,
		Subject: "Your application status changed",
		Body:    fmt.Sprintf("Hi %s, your application for %s %s", greet(name), program, verdict),
	}
}

func VerifyEmail(to, name, link string) Message {
	return Message{
		Kind:    KindVerifyEmail,
		To:      to,
		Name:    name,
		Subject: "Verify your e-mail address",
		Body:    fmt.Sprintf("Hi %s, confirm your address by opening %s . The link expires in 24 hours.", greet(name), link),
	}
}

func greet(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
