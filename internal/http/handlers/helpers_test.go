package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/validation"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
		Details   struct {
			JSON   string `json:"json"`
			Field  string `json:"field"`
			Fields []struct {
				Field   string `json:"field"`
				Rule    string `json:"rule"`
				Param   string `json:"param"`
				Message string `json:"message"`
			} `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.RegisterWithGin()
	return gin.New()
}

// asUser stands in for the session middleware.
func asUser(s auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, buf)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	return resp
}

func fieldRules(resp errorResponse) map[string]string {
	out := map[string]string{}
	for _, f := range resp.Error.Details.Fields {
		out[f.Field] = f.Rule
	}
	return out
}
