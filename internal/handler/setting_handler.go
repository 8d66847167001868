package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSettings 返回全部站点设置。
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.All(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetSetting 返回单个设置。
func (a *API) GetSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := a.settings.Get(c.Request.Context(), key)
	if err != nil {
		a.respondServiceError(c, err, "Failed to load setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{key: value})
}

// UpdateSettings 批量写入设置。
func (a *API) UpdateSettings(c *gin.Context) {
	var values map[string]string
	if !bindJSON(c, &values, "Missing JSON in request") {
		return
	}
	if len(values) == 0 {
		respondError(c, http.StatusBadRequest, "No settings provided")
		return
	}

	if err := a.settings.SetMany(c.Request.Context(), editorFrom(c), values); err != nil {
		a.respondServiceError(c, err, "Failed to update settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings updated successfully"})
}

type settingValueRequest struct {
	Value *string `json:"value"`
}

// PutSetting 写入单个设置。
func (a *API) PutSetting(c *gin.Context) {
	var req settingValueRequest
	if !bindJSON(c, &req, "Missing JSON in request") {
		return
	}
	if req.Value == nil {
		respondError(c, http.StatusBadRequest, "No value provided")
		return
	}

	key := c.Param("key")
	if err := a.settings.Set(c.Request.Context(), editorFrom(c), key, *req.Value); err != nil {
		a.respondServiceError(c, err, "Failed to update setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Setting '" + key + "' updated successfully"})
}

// DeleteSetting 删除单个设置。
func (a *API) DeleteSetting(c *gin.Context) {
	key := c.Param("key")
	deleted, err := a.settings.Delete(c.Request.Context(), editorFrom(c), key)
	if err != nil {
		a.respondServiceError(c, err, "Failed to delete setting")
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "Setting not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Setting '" + key + "' deleted successfully"})
}
