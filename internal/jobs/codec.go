package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/geocoder89/admissionhub/internal/domain/job"
)

// EncodePayload checks that payload matches t and marshals it.
func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	if err := ValidatePayload(t, payload); err != nil {
		return nil, err
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// NewCreateRequest encodes payload into a job create request with an idempotency key
// derived from the type and key parts.
func NewCreateRequest(t JobType, payload any, keyParts ...string) (job.CreateRequest, error) {
	b, err := EncodePayload(t, payload)
	if err != nil {
		return job.CreateRequest{}, err
	}

	req := job.CreateRequest{
		Type:        string(t),
		Payload:     b,
		MaxAttempts: 10,
	}

	if len(keyParts) > 0 {
		key := string(t) + ":" + strings.Join(keyParts, ":")
		req.IdempotencyKey = &key
	}

	return req, nil
}

// DecodePayload unmarshals j.Payload into the typed payload for j.Type.
func DecodePayload(j job.Job) (any, error) {
	t := JobType(j.Type)
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	var (
		out any
		err error
	)

	switch t {
	case JobSubmissionReceipt:
		var p SubmissionReceiptPayload
		err = json.Unmarshal(j.Payload, &p)
		out = p
	case JobDecisionNotice:
		var p DecisionNoticePayload
		err = json.Unmarshal(j.Payload, &p)
		out = p
	case JobVerifyEmail:
		var p VerifyEmailPayload
		err = json.Unmarshal(j.Payload, &p)
		out = p
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	if err := ValidatePayload(t, out); err != nil {
		return nil, err
	}

	return out, nil
}
