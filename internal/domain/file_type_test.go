package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMimeType(t *testing.T) {
	cases := []struct {
		mime string
		want FileType
	}{
		{"image/jpeg", FileTypeImage},
		{"image/gif", FileTypeImage},
		{"image/png", FileTypeImage},
		{"application/msword", FileTypeDoc},
		{"application/vnd.openxmlformats- officedocument.wordprocessingml.document", FileTypeDoc},
		{"video/mp4", FileTypeVideo},
		{"video/x-flv", FileTypeVideo},
		{"audio/mpeg3", FileTypeAudio},
		{"audio/wav", FileTypeAudio},
		{"application/vnd.oasis.opendocument.spreadsheet", FileTypeSheet},
		{"text/csv", FileTypeSheet},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FileTypeSheet},
		{"application/vnd.ms-excel", FileTypeSheet},
		{"application/json", FileTypeOther},
		{"text/plain", FileTypeOther},
		{"", FileTypeOther},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyMimeType(tc.mime))
		})
	}
}

func TestClassifyMimeType_ImageWinsRegardlessOfSurroundings(t *testing.T) {
	for _, mime := range []string{
		"IMAGE/PNG",
		"Image/svg+xml",
		"application/x-image-video-audio",
		"x-csv-image",
		"application/vnd.ms-excel; image",
	} {
		assert.Equal(t, FileTypeImage, ClassifyMimeType(mime), mime)
	}
}

func TestClassifyMimeTypePtr(t *testing.T) {
	assert.Equal(t, FileTypeOther, ClassifyMimeTypePtr(nil))
	mime := "video/webm"
	assert.Equal(t, FileTypeVideo, ClassifyMimeTypePtr(&mime))
}
