package model

import (
	"path/filepath"
	"strings"
)

const (
	DefaultExt   = ".jpg"
	ResultSuffix = "_result"

	ContentTypeBinary = "application/octet-stream"
)

var videoExts = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

// InferExt picks the stored extension for an upload: the filename's own
// extension wins, then the declared media type, then DefaultExt.
func InferExt(filename, mediaType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); safeExt(ext) {
		return ext
	}
	mt := strings.ToLower(mediaType)
	switch {
	case strings.Contains(mt, "image/jpeg"), strings.Contains(mt, "image/jpg"):
		return ".jpg"
	case strings.Contains(mt, "image/png"):
		return ".png"
	case strings.Contains(mt, "image/gif"):
		return ".gif"
	case strings.Contains(mt, "image/webp"):
		return ".webp"
	case strings.Contains(mt, "video"):
		return ".mp4"
	}
	return DefaultExt
}

func safeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// KindForExt reports whether an upload extension is a video container.
func KindForExt(ext string) MediaKind {
	if videoExts[strings.ToLower(ext)] {
		return MediaKindVideo
	}
	return MediaKindImage
}

// ContentTypeForExt maps a result extension to the served media type.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return ContentTypeBinary
}

// Servable is true for image/* and video/* types only.
func Servable(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

func UploadName(id, ext string) string { return id + ext }

func ResultName(id, ext string) string { return id + ResultSuffix + ext }

// ResultPrefix is what every result artifact name for id starts with.
func ResultPrefix(id string) string { return id + ResultSuffix }
