package scanning

import (
	"mime"
	"path/filepath"
	"strings"
)

var extensionTypes = map[string]string{
	".txt":  "text/plain",
	".text": "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
}

// ContentTypeFromFilename guesses the content type of an upload from its extension
func ContentTypeFromFilename(filename string) string {
	if contentType, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return contentType
	}
	return "application/octet-stream"
}

// parseContentType splits a Content-Type header into its lowercased media type and charset
func parseContentType(contentType string) (string, string) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(mt)), ""
	}
	return mt, strings.ToLower(params["charset"])
}

// mediaType returns the lowercased media type without parameters
func mediaType(contentType string) string {
	mt, _ := parseContentType(contentType)
	return mt
}
