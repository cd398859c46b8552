package utils

import (
	"net/url"
	"path"
	"strings"

	"github.com/auroramedia/gramflow/entity"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".m4v":  true,
	".webm": true,
}

var allowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".mp4":  true,
	".mov":  true,
	".m4v":  true,
	".webm": true,
}

// MediaTypeFromURL infers image vs video from the URL's file extension.
// Anything that is not a known video extension is treated as an image.
func MediaTypeFromURL(mediaURL string) string {
	ext := strings.ToLower(path.Ext(pathOf(mediaURL)))
	if videoExtensions[ext] {
		return entity.MediaTypeVideo
	}
	return entity.MediaTypeImage
}

// ValidMediaURL requires an absolute http(s) URL: the Graph API fetches the
// media itself, so local paths are useless to it.
func ValidMediaURL(mediaURL string) bool {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// AllowedUploadName reports whether the uploaded file carries an extension
// the publish pipeline can work with.
func AllowedUploadName(filename string) bool {
	return allowedUploadExtensions[strings.ToLower(path.Ext(filename))]
}

func pathOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return u.Path
	}
	return rawURL
}
