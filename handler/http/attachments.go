package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxAttachmentSize = 32 << 20 // 32 MiB

// UploadAttachment stores a multipart file under the article. The article
// must exist in the caller's team before anything is written.
func (h *Handler) UploadAttachment(c *gin.Context) {
	articleID := c.Param("id")
	teamID := currentUser(c).TeamID

	if _, err := h.articleService.Get(c.Request.Context(), articleID, teamID); err != nil {
		sendError(c, 0, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Code:    "FILE_TOO_LARGE",
			Message: "attachment exceeds the size limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		sendError(c, 0, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.attachments.PutAttachment(c.Request.Context(), teamID, articleID, fileHeader.Filename, contentType, data); err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusCreated, gin.H{
		"name": fileHeader.Filename,
		"size": fileHeader.Size,
	})
}

func (h *Handler) ListAttachments(c *gin.Context) {
	articleID := c.Param("id")
	teamID := currentUser(c).TeamID

	if _, err := h.articleService.Get(c.Request.Context(), articleID, teamID); err != nil {
		sendError(c, 0, err)
		return
	}

	attachments, err := h.attachments.ListAttachments(c.Request.Context(), teamID, articleID)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"attachments": attachments})
}

func (h *Handler) DeleteAttachment(c *gin.Context) {
	articleID := c.Param("id")
	teamID := currentUser(c).TeamID

	if _, err := h.articleService.Get(c.Request.Context(), articleID, teamID); err != nil {
		sendError(c, 0, err)
		return
	}

	if err := h.attachments.DeleteAttachment(c.Request.Context(), teamID, articleID, c.Param("name")); err != nil {
		sendError(c, 0, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DownloadAttachment(c *gin.Context) {
	articleID := c.Param("id")
	teamID := currentUser(c).TeamID

	if _, err := h.articleService.Get(c.Request.Context(), articleID, teamID); err != nil {
		sendError(c, 0, err)
		return
	}

	data, err := h.attachments.GetAttachment(c.Request.Context(), teamID, articleID, c.Param("name"))
	if err != nil {
		sendError(c, 0, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+c.Param("name")+`"`)
	c.Data(http.StatusOK, "application/octet-stream", data)
}
