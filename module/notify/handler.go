package notify

import (
	"net/http"
	"strings"

	"CBProject/middleware/security"
	"CBProject/module/chat/model"
	"CBProject/tools/errs"

	"github.com/gin-gonic/gin"
)

const listLimit = 50

// Handler serves the notification REST surface for the authenticated user.
type Handler struct {
	notifs model.INotificationStore
	users  model.IUserStore
}

func NewHandler(notifs model.INotificationStore, users model.IUserStore) *Handler {
	return &Handler{notifs: notifs, users: users}
}

type actorView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type notifView struct {
	ID        string                 `json:"id"`
	Actor     actorView              `json:"actor"`
	Type      string                 `json:"type"`
	Data      model.NotificationData `json:"data"`
	Read      bool                   `json:"read"`
	CreatedAt int64                  `json:"createdAt"`
}

// HandlerList returns the caller's newest notifications, newest first,
// with actor display fields joined in.
func (h *Handler) HandlerList(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}

	rows, err := h.notifs.ListByUser(c.Request.Context(), uid, listLimit)
	if err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}

	actorIDs := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, n := range rows {
		id := n.Actor.Hex()
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			actorIDs = append(actorIDs, id)
		}
	}
	actors, err := h.users.FindDisplayMany(c.Request.Context(), actorIDs)
	if err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}

	out := make([]notifView, 0, len(rows))
	for _, n := range rows {
		av := actorView{ID: n.Actor.Hex()}
		if u, ok := actors[av.ID]; ok {
			av.Name = u.Name
			av.AvatarURL = u.AvatarURL
		}
		out = append(out, notifView{
			ID:        n.HexID(),
			Actor:     av,
			Type:      n.Type,
			Data:      n.Data,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

// HandlerMarkRead flips one of the caller's notifications to read.
func (h *Handler) HandlerMarkRead(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	notifID := strings.TrimSpace(c.Param("id"))
	if notifID == "" {
		abortErr(c, http.StatusBadRequest, errs.NewCodeError(errs.CodeBadRequest, "notification id required"))
		return
	}
	if err := h.notifs.MarkRead(c.Request.Context(), uid, notifID); err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type markChatReq struct {
	ChatID string `json:"chatId"`
}

// HandlerMarkChatRead marks every message notification from one chat read.
func (h *Handler) HandlerMarkChatRead(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	var req markChatReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ChatID) == "" {
		abortErr(c, http.StatusBadRequest, errs.NewCodeError(errs.CodeBadRequest, "chatId required"))
		return
	}
	if err := h.notifs.MarkChatRead(c.Request.Context(), uid, req.ChatID); err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// HandlerMarkAllRead marks every unread notification of the caller read.
func (h *Handler) HandlerMarkAllRead(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	if err := h.notifs.MarkAllRead(c.Request.Context(), uid); err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func abortErr(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":  errs.Code(err),
		"error": err.Error(),
	})
}
