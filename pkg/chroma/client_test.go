package chroma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"homeops-backend/pkg/config"
)

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "user-1:msg-9", string(documentID("user-1", "msg-9")))
}

func TestDocumentText(t *testing.T) {
	text := documentText(Document{Subject: "Field trip", Sender: "teacher@school.edu", Category: "school", Snippet: "Sign the slip"})
	assert.Equal(t, "Subject: Field trip\nFrom: teacher@school.edu\nCategory: school\n\nSign the slip", text)

	long := documentText(Document{Snippet: strings.Repeat("a", maxDocumentChars*2)})
	assert.Len(t, long, maxDocumentChars)
}

func TestNewChromaClient_RequiresKeys(t *testing.T) {
	_, err := NewChromaClient(&config.Config{})
	assert.ErrorContains(t, err, "CHROMA_API_KEY")

	_, err = NewChromaClient(&config.Config{ChromaAPIKey: "k"})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}
