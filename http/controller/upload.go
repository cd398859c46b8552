package controller

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auroramedia/gramflow/utils"
)

var unsafeNameChars = regexp.MustCompile(`[^\w.\-]+`)

// UploadMedia stores one multipart file in the media bucket and returns the
// public URL a schedule request can reference.
func (ctrl *Controller) UploadMedia(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.JSON400(c, "No file")
		return
	}

	if !utils.AllowedUploadName(fileHeader.Filename) {
		utils.JSON400(c, "Unsupported file type: "+fileHeader.Filename)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	safe := unsafeNameChars.ReplaceAllString(fileHeader.Filename, "_")
	objectName := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), safe)

	file, err := fileHeader.Open()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to open uploaded file %s", fileHeader.Filename)
		utils.JSON500(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	if err := ctrl.Infra.Minio.StoreMedia(ctx, objectName, file, fileHeader.Size, contentType); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to store %s", objectName)
		utils.JSON500(c, "Failed to store media")
		return
	}

	publicURL := ctrl.Infra.Minio.PublicURL(objectName)
	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Upload] Stored %s (%d bytes) at %s", objectName, fileHeader.Size, publicURL)

	utils.JSON200(c, gin.H{
		"ok":   true,
		"url":  publicURL,
		"name": fileHeader.Filename,
		"size": fileHeader.Size,
	})
}
