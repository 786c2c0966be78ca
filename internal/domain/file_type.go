package domain

import "strings"

// FileType is the coarse category of an attachment, used by clients to pick
// an icon or a viewer.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeAudio FileType = "audio"
	FileTypeDoc   FileType = "doc"
	FileTypeSheet FileType = "sheet"
	FileTypeOther FileType = "other"
)

type typeRule struct {
	fileType   FileType
	signatures []string
}

// Order matters: first match wins.
var typeRules = []typeRule{
	{FileTypeImage, []string{"image"}},
	{FileTypeVideo, []string{"video"}},
	{FileTypeAudio, []string{"audio"}},
	{FileTypeDoc, []string{"msword", "wordprocessingml.document"}},
	{FileTypeSheet, []string{"ms-excel", "spreadsheet", "csv"}},
}

// ClassifyMimeType maps a MIME type to its FileType.
// An empty or unrecognized MIME type is FileTypeOther.
func ClassifyMimeType(mimeType string) FileType {
	if mimeType == "" {
		return FileTypeOther
	}
	mimeType = strings.ToLower(mimeType)
	for _, rule := range typeRules {
		for _, sig := range rule.signatures {
			if strings.Contains(mimeType, sig) {
				return rule.fileType
			}
		}
	}
	return FileTypeOther
}

// ClassifyMimeTypePtr is ClassifyMimeType for optional metadata.
func ClassifyMimeTypePtr(mimeType *string) FileType {
	if mimeType == nil {
		return FileTypeOther
	}
	return ClassifyMimeType(*mimeType)
}
