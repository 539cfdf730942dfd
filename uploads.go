package main

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

var allowedUploadMimeTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"image/jpeg": true,
	"image/png":  true,
}

// uploadFileHandler receives a multipart file, stores it in the bucket under
// the firm's prefix and returns the object URL. Images also get a 200px
// thumbnail next to the original. The returned URL is what callers pass to
// the document attach endpoint.
func uploadFileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		firmId, _ := utils.GetFirmIdFromContext(c.Request.Context())

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if !allowedUploadMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadFileHandler", "Open", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadFileHandler", "ReadAll", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		objectKey := path.Join(firmId, "uploads", utils.GenerateUniqueFilename()+ext)

		fileUrl, err := utils.UploadFileToGCS(c.Request.Context(), objectKey, bytes.NewReader(data))
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadFileHandler", "UploadFileToGCS", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}

		response := gin.H{"file_url": fileUrl, "object_key": objectKey}

		if strings.HasPrefix(mimeType, "image/") {
			thumb, err := utils.MakeImageThumbnail(data)
			if err != nil {
				config.LogError(logger, "uploads.go", "uploadFileHandler", "MakeImageThumbnail", objectKey, err)
			} else {
				thumbKey := path.Join(path.Dir(objectKey), "thumbnails", path.Base(objectKey))
				thumbUrl, err := utils.UploadFileToGCS(c.Request.Context(), thumbKey, bytes.NewReader(thumb))
				if err != nil {
					config.LogError(logger, "uploads.go", "uploadFileHandler", "UploadFileToGCS thumbnail", thumbKey, err)
				} else {
					response["thumbnail_url"] = thumbUrl
				}
			}
		}

		logger.WithFields(logrus.Fields{
			"firm_id":    firmId,
			"mime_type":  mimeType,
			"size":       len(data),
			"object_key": objectKey,
		}).Info("[upload]")

		c.JSON(http.StatusOK, response)
	}
}
