package user

import (
	"net/http"
	"strings"

	"CBProject/service/storage"
	"CBProject/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler serves user presence lookup. Session issuance belongs to the auth
// collaborator; this service only verifies tokens it is handed.
type Handler struct {
	// localOnline answers from this gateway's registry; the redis mirror
	// covers users connected elsewhere.
	localOnline func(userID string) bool
}

func NewHandler(localOnline func(string) bool) *Handler {
	if localOnline == nil {
		localOnline = func(string) bool { return false }
	}
	return &Handler{localOnline: localOnline}
}

// HandlerPresence reports whether a user has a live connection, here or on
// another gateway via the redis mirror. Mirror misses degrade to offline.
func (h *Handler) HandlerPresence(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		abortErr(c, http.StatusBadRequest, errs.NewCodeError(errs.CodeBadRequest, "userId required"))
		return
	}

	if h.localOnline(userID) {
		c.JSON(http.StatusOK, gin.H{"online": true})
		return
	}
	gw, online, err := storage.PresenceLookup(userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"online": false})
		return
	}
	resp := gin.H{"online": online}
	if online {
		resp["gateway"] = gw
	}
	c.JSON(http.StatusOK, resp)
}

func abortErr(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":  errs.Code(err),
		"error": err.Error(),
	})
}
