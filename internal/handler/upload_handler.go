package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// multipart 头部与边界的额外余量
const multipartOverhead = 1 << 20

// UploadFile 处理文件上传请求。
func (a *API) UploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(c, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit")
			return
		}
		respondError(c, http.StatusBadRequest, "No file part in the request")
		return
	}
	if file.Filename == "" {
		respondError(c, http.StatusBadRequest, "No file selected")
		return
	}

	src, err := file.Open()
	if err != nil {
		a.respondServiceError(c, err, "Failed to read upload")
		return
	}
	defer src.Close()

	record, err := a.uploads.Store(c.Request.Context(), editorFrom(c), src, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		a.respondServiceError(c, err, "Invalid file type or upload failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"url":      record.URL,
		"filename": record.Filename,
		"upload":   record,
	})
}

// ListUploads 列出已上传的文件。
func (a *API) ListUploads(c *gin.Context) {
	uploads, err := a.uploads.List(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "Failed to list uploads")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   uploads,
		"count":   len(uploads),
	})
}

// DeleteUpload 删除已上传的文件。
func (a *API) DeleteUpload(c *gin.Context) {
	filename := c.Param("filename")
	deleted, err := a.uploads.Delete(c.Request.Context(), editorFrom(c), filename)
	if err != nil {
		a.respondServiceError(c, err, "Failed to delete file")
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "File not found or could not be deleted")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "File " + filename + " deleted successfully"})
}
