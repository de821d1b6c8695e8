package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetContentType(t *testing.T) {
	cases := []struct {
		ext  string
		want string
	}{
		{".pdf", "application/pdf"},
		{".PDF", "application/pdf"},
		{".doc", "application/msword"},
		{".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{".txt", "text/plain"},
		{".html", "text/html"},
		{".md", "text/markdown"},
		{".xyz", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, getContentType(tc.ext), "ext=%q", tc.ext)
	}
}
