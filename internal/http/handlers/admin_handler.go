package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/varejolabs/salesbot/internal/session"
	"github.com/varejolabs/salesbot/internal/utils"
)

// SessionAdmin is the slice of the session store the admin surface needs.
type SessionAdmin interface {
	Snapshots() []session.Snapshot
	End(conversationID string) bool
}

// AdminHandler exposes the operational view of live conversations.
type AdminHandler struct {
	Sessions SessionAdmin
}

// SessionsPage is the paginated session listing.
type SessionsPage struct {
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Total    int                `json:"total"`
	Items    []session.Snapshot `json:"items"`
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List live conversation sessions
// @Description Returns a paginated point-in-time snapshot of active sessions, most recent activity first.
// @Tags        Admin
// @Produce     json
//
// @Param       page       query  int  false  "1-based page"    example(1)
// @Param       page_size  query  int  false  "items per page"  example(20)
//
// @Success     200  {object}  handlers.SessionsPage
// @Router      /admin/sessions [get]
func (h *AdminHandler) ListSessions(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	size := utils.AtoiDefault(c.Query("page_size"), 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	all := h.Sessions.Snapshots()
	total := len(all)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	ok(c, http.StatusOK, SessionsPage{
		Page:     page,
		PageSize: size,
		Total:    total,
		Items:    all[start:end],
	})
}

// EndSession godoc
// @ID          endSession
// @Summary     Terminate a conversation session
// @Description Drops the session state for one conversation immediately.
// @Tags        Admin
//
// @Param       id  path  string  true  "conversation id"
//
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse  "No such session"
// @Router      /admin/sessions/{id}/end [post]
func (h *AdminHandler) EndSession(c *gin.Context) {
	if !h.Sessions.End(c.Param("id")) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no such session")
		return
	}
	noContent(c)
}
