package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"ascii only", "simple-file-name.txt", "simple-file-name.txt"},
		{"with spaces", "file with spaces.pdf", "file with spaces.pdf"},
		{"latin accents", "résumé.pdf", "resume.pdf"},
		{"uppercase accents", "RÉSUMÉ.PDF", "RESUME.PDF"},
		{"spanish", "niño.jpg", "nino.jpg"},
		{"non latin", "写真.png", "--.png"},
		{"unix path", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\me\photo.jpg`, "photo.jpg"},
		{"control characters", "line\nbreak\t.txt", "linebreak.txt"},
		{"dot dot", "..", ""},
		{"trailing slash", "folder/", "folder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFileName(tt.input))
		})
	}
}
