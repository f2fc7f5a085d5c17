package chat

import (
	"net/http"
	"strings"

	"CBProject/middleware/security"
	"CBProject/module/chat/model"
	live "CBProject/service/chat"
	"CBProject/service/storage"
	"CBProject/tools/errs"

	"github.com/gin-gonic/gin"
)

const historyLimit = 100

// Handler serves chat lookup and history over REST; live traffic goes
// through the websocket gateway.
type Handler struct {
	chats model.IChatStore
	msgs  model.IMessageStore
	users model.IUserStore
}

func NewHandler(chats model.IChatStore, msgs model.IMessageStore, users model.IUserStore) *Handler {
	return &Handler{chats: chats, msgs: msgs, users: users}
}

type openChatReq struct {
	PeerID string `json:"peerId"`
}

type chatView struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Members []string `json:"members"`
}

// HandlerOpen finds or creates the private chat between the caller and a
// peer. Opening the same pair twice returns the same chat.
func (h *Handler) HandlerOpen(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	var req openChatReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PeerID) == "" {
		abortErr(c, http.StatusBadRequest, errs.NewCodeError(errs.CodeBadRequest, "peerId required"))
		return
	}

	chat, err := h.chats.FindOrCreatePrivate(c.Request.Context(), uid, req.PeerID)
	if err != nil {
		abortErr(c, http.StatusBadRequest, errs.NewCodeError(errs.CodeBadRequest, "could not open chat").WithDetail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chatView{
		ID:      chat.HexID(),
		Type:    chat.Type,
		Members: chat.MemberIDs(),
	}})
}

type senderView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type messageView struct {
	ID        string     `json:"id"`
	ChatID    string     `json:"chatId"`
	Sender    senderView `json:"sender"`
	Kind      string     `json:"kind"`
	Text      string     `json:"text,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	CreatedAt int64      `json:"createdAt"`
}

// HandlerHistory lists a chat's messages oldest first, newest last, with
// sender display fields joined in. Only members may read.
func (h *Handler) HandlerHistory(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	chatID := strings.TrimSpace(c.Param("chatId"))
	if chatID == "" {
		abortErr(c, http.StatusBadRequest, errs.NewCodeError(errs.CodeBadRequest, "chatId required"))
		return
	}

	chat, err := h.chats.FindByID(c.Request.Context(), chatID)
	if err != nil {
		abortErr(c, http.StatusNotFound, errs.NewCodeError(errs.CodeBadRequest, "chat not found").WithDetail(err.Error()))
		return
	}
	if !isMember(chat, uid) {
		abortErr(c, http.StatusForbidden, errs.ErrUnauthorized.WithDetail("not a member of this chat"))
		return
	}

	rows, err := h.msgs.ListByChat(c.Request.Context(), chatID, historyLimit)
	if err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}

	senderIDs := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		id := m.Sender.Hex()
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			senderIDs = append(senderIDs, id)
		}
	}
	senders, err := h.users.FindDisplayMany(c.Request.Context(), senderIDs)
	if err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}

	out := make([]messageView, 0, len(rows))
	for _, m := range rows {
		sv := senderView{ID: m.Sender.Hex()}
		if u, ok := senders[sv.ID]; ok {
			sv.Name = u.Name
			sv.AvatarURL = u.AvatarURL
		}
		out = append(out, messageView{
			ID:        m.HexID(),
			ChatID:    m.Chat.Hex(),
			Sender:    sv,
			Kind:      m.Kind,
			Text:      m.Text,
			ImageURL:  m.ImageURL,
			CreatedAt: m.CreatedAt.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

const recentLimit = 20

// HandlerRecent returns short previews of the newest messages, newest
// first, for chat-list rendering. Served from the redis window when warm,
// rebuilt from the message log otherwise.
func (h *Handler) HandlerRecent(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		abortErr(c, http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	chatID := strings.TrimSpace(c.Param("chatId"))
	chat, err := h.chats.FindByID(c.Request.Context(), chatID)
	if err != nil {
		abortErr(c, http.StatusNotFound, errs.NewCodeError(errs.CodeBadRequest, "chat not found").WithDetail(err.Error()))
		return
	}
	if !isMember(chat, uid) {
		abortErr(c, http.StatusForbidden, errs.ErrUnauthorized.WithDetail("not a member of this chat"))
		return
	}

	if cached, err := storage.FetchRecent(chatID, recentLimit); err == nil && len(cached) > 0 {
		c.JSON(http.StatusOK, gin.H{"recent": cached})
		return
	}

	rows, err := h.msgs.ListByChat(c.Request.Context(), chatID, historyLimit)
	if err != nil {
		abortErr(c, http.StatusInternalServerError, errs.ErrPersistenceFailure.WithDetail(err.Error()))
		return
	}
	if len(rows) > recentLimit {
		rows = rows[len(rows)-recentLimit:]
	}
	out := make([]storage.RecentMsg, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // newest first
		m := rows[i]
		out = append(out, storage.RecentMsg{
			ID:        m.HexID(),
			Sender:    m.Sender.Hex(),
			Kind:      m.Kind,
			Preview:   live.BuildPreview(m.Kind, m.Text),
			CreatedAt: m.CreatedAt.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"recent": out})
}

func isMember(chat *model.Chat, uid string) bool {
	for _, m := range chat.MemberIDs() {
		if m == uid {
			return true
		}
	}
	return false
}

func abortErr(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":  errs.Code(err),
		"error": err.Error(),
	})
}
