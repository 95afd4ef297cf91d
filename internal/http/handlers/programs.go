package handlers

import (
	"net/http"

	"github.com/geocoder89/admissionhub/internal/cache"
	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/gin-gonic/gin"
)

const catalogCacheKey = "catalog:v1"

type ProgramsHandler struct {
	cache *cache.Cache
}

func NewProgramsHandler(c *cache.Cache) *ProgramsHandler {
	return &ProgramsHandler{cache: c}
}

// GET /programs serves the catalog from the TTL cache with an ETag.
func (h *ProgramsHandler) Catalog(ctx *gin.Context) {
	v, err := h.cache.GetOrLoad(catalogCacheKey, h.cache.DefaultTTL(), func() (any, error) {
		t, err := NewTagged(application.DefaultCatalog())
		return t, err
	})
	if err != nil {
		RespondInternal(ctx, "Failed to load programs", err)
		return
	}

	tagged, ok := v.(Tagged)
	if !ok {
		h.cache.Delete(catalogCacheKey)
		RespondJSONWithETag(ctx, http.StatusOK, application.DefaultCatalog())
		return
	}

	ctx.Header("Cache-Control", "public, max-age=60")
	respondTagged(ctx, http.StatusOK, tagged)
}
