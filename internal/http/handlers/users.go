package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserLister interface {
	List(ctx context.Context) ([]user.Summary, error)
}

type UsersHandler struct {
	users UserLister
}

func NewUsersHandler(users UserLister) *UsersHandler {
	return &UsersHandler{users: users}
}

// GET /admin/users, ordered by name
func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	list, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Failed to fetch users", err)
		return
	}
	if list == nil {
		list = []user.Summary{}
	}

	ctx.JSON(http.StatusOK, list)
}
