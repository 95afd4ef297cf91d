package jobs

import "strings"

// ValidatePayload performs minimal validation on typed payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	blank := func(ss ...string) bool {
		for _, s := range ss {
			if strings.TrimSpace(s) == "" {
				return true
			}
		}
		return false
	}

	switch t {
	case JobSubmissionReceipt:
		var p SubmissionReceiptPayload
		switch v := payload.(type) {
		case SubmissionReceiptPayload:
			p = v
		case *SubmissionReceiptPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.ApplicationID, p.StudentID, p.Email) {
			return ErrInvalidJobPayload
		}
		return nil

	case JobDecisionNotice:
		var p DecisionNoticePayload
		switch v := payload.(type) {
		case DecisionNoticePayload:
			p = v
		case *DecisionNoticePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.ApplicationID, p.StudentID, p.Email, p.Status) {
			return ErrInvalidJobPayload
		}
		return nil

	case JobVerifyEmail:
		var p VerifyEmailPayload
		switch v := payload.(type) {
		case VerifyEmailPayload:
			p = v
		case *VerifyEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.UserID, p.Email, p.Link) {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
