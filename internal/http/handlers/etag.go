package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Tagged is a payload with its ETag computed once, so cached responses
// don't re-hash on every request.
type Tagged struct {
	Payload interface{}
	ETag    string
}

func NewTagged(payload interface{}) (Tagged, error) {
	etag, err := buildETag(payload)
	if err != nil {
		return Tagged{}, err
	}
	return Tagged{Payload: payload, ETag: etag}, nil
}

func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	etag, err := buildETag(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	respondTagged(ctx, status, Tagged{Payload: payload, ETag: etag})
}

func respondTagged(ctx *gin.Context, status int, t Tagged) {
	ctx.Header("ETag", t.ETag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), t.ETag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, t.Payload)
}

func buildETag(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}
	if headerValue == "*" {
		return true
	}

	current := normalizeETag(currentETag)
	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

// W/"abc" and "abc" compare equal for GET revalidation.
func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)
	return strings.TrimSpace(strings.TrimPrefix(v, "W/"))
}
