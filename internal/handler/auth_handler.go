package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/service"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	editorContextKey   = "__editor"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验凭据并写入会话。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "Missing JSON in request") {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := a.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		a.respondServiceError(c, err, "Failed to log in")
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		a.respondServiceError(c, err, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "user": user.Username})
}

// Logout 清空会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		a.respondServiceError(c, err, "Failed to clear session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

// AuthStatus 返回当前会话是否已登录。
func (a *API) AuthStatus(c *gin.Context) {
	username, ok := sessionUsername(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": username})
}

// AuthRequired 校验会话，并把编辑者凭证放入请求上下文。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := sessionUsername(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		c.Set(editorContextKey, service.Editor{Username: username})
		c.Next()
	}
}

func sessionUsername(c *gin.Context) (string, bool) {
	session := sessions.Default(c)
	if session.Get(sessionUserIDKey) == nil {
		return "", false
	}
	username, _ := session.Get(sessionUsernameKey).(string)
	if strings.TrimSpace(username) == "" {
		return "", false
	}
	return username, true
}

// editorFrom returns the editor installed by AuthRequired, or the zero
// Editor which every mutation rejects.
func editorFrom(c *gin.Context) service.Editor {
	if value, ok := c.Get(editorContextKey); ok {
		if editor, ok := value.(service.Editor); ok {
			return editor
		}
	}
	return service.Editor{}
}
