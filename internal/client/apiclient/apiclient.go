// Package apiclient is the typed HTTP client the wizard and the review board
// talk to. It speaks the same JSON and error envelope the API serves.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer decoded from the error envelope.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

type Client struct {
	rc *resty.Client

	mu    sync.RWMutex
	token string
}

type Option func(*resty.Client)

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")

	for _, o := range opts {
		o(rc)
	}

	return &Client{rc: rc}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.rc.R().SetContext(ctx).SetError(&errorEnvelope{})
	if t := c.Token(); t != "" {
		r.SetAuthToken(t)
	}
	return r
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if env, ok := resp.Error().(*errorEnvelope); ok && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.RequestID = env.Error.RequestID
	} else {
		apiErr.Code = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

type RegisterInput struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

type Account struct {
	ID    string    `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (Account, error) {
	var out Account
	err := check(c.request(ctx).SetBody(in).SetResult(&out).Post("/register"))
	return out, err
}

// Login stores the access token on success so later calls are authenticated.
func (c *Client) Login(ctx context.Context, email, password string) (Account, error) {
	var out struct {
		AccessToken string  `json:"accessToken"`
		User        Account `json:"user"`
	}

	err := check(c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/login"))
	if err != nil {
		return Account{}, err
	}

	c.SetToken(out.AccessToken)
	return out.User, nil
}

func (c *Client) Catalog(ctx context.Context) (application.Catalog, error) {
	var out application.Catalog
	err := check(c.request(ctx).SetResult(&out).Get("/programs"))
	return out, err
}

// Submission is the body of POST /student/application.
type Submission struct {
	Program                   string     `json:"program"`
	PersonalStatement         string     `json:"personalStatement"`
	PreviousEducation         string     `json:"previousEducation"`
	Courses                   []string   `json:"courses"`
	ExpectedGrade             string     `json:"expectedGrade"`
	CurrentGPA                *float64   `json:"currentGPA,omitempty"`
	PhoneNumber               string     `json:"phoneNumber"`
	EmergencyContact          string     `json:"emergencyContact,omitempty"`
	EmergencyPhone            string     `json:"emergencyPhone,omitempty"`
	WorkExperience            string     `json:"workExperience,omitempty"`
	ExtracurricularActivities string     `json:"extracurricularActivities,omitempty"`
	ScholarshipNeeded         bool       `json:"scholarshipNeeded"`
	StartDate                 *time.Time `json:"startDate,omitempty"`
	StudyMode                 string     `json:"studyMode,omitempty"`
	Accommodation             bool       `json:"accommodation"`
}

func (c *Client) SubmitApplication(ctx context.Context, s Submission) (application.Application, error) {
	var out struct {
		Message     string                  `json:"message"`
		Application application.Application `json:"application"`
	}
	err := check(c.request(ctx).SetBody(s).SetResult(&out).Post("/student/application"))
	return out.Application, err
}

func (c *Client) MyApplications(ctx context.Context) ([]application.Application, error) {
	var out []application.Application
	err := check(c.request(ctx).SetResult(&out).Get("/student/status"))
	return out, err
}

// ListApplications fetches the admin listing; an empty status means ALL.
func (c *Client) ListApplications(ctx context.Context, status string) ([]application.Application, error) {
	var out []application.Application

	r := c.request(ctx).SetResult(&out)
	if status != "" {
		r.SetQueryParam("status", status)
	}
	err := check(r.Get("/admin/applications"))
	return out, err
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status application.Status) (application.Application, error) {
	var out application.Application
	err := check(c.request(ctx).
		SetBody(application.UpdateStatusRequest{ID: id, Status: status}).
		SetResult(&out).
		Patch("/admin/applications"))
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (application.Dashboard, error) {
	var out application.Dashboard
	err := check(c.request(ctx).SetResult(&out).Get("/admin/dashboard"))
	return out, err
}
