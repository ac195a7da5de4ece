package qa

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-judge/internal/schemas"
)

func TestBuildMessages(t *testing.T) {
	png := schemas.Attachment{Filename: "chart.png", DownloadURL: "https://cdn.example.com/a/chart.png", ContentType: "image/png"}

	t.Run("text only", func(t *testing.T) {
		msgs := BuildMessages(Request{JudgePrompt: "Be strict.", QuestionText: "Is the sky blue?", Answer: `{"choice":"yes"}`, Model: "gpt-4o"})
		require.Len(t, msgs, 2)

		assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
		assert.Equal(t, "Be strict.", msgs[0].MultiContent[0].Text)

		assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
		require.Len(t, msgs[1].MultiContent, 1)
		assert.Equal(t, "Question: Is the sky blue?\nAnswer: {\"choice\":\"yes\"}", msgs[1].MultiContent[0].Text)
	})

	t.Run("image with vision model", func(t *testing.T) {
		msgs := BuildMessages(Request{Model: "gpt-4o", Attachments: []schemas.Attachment{png}})
		part := msgs[1].MultiContent[1]
		assert.Equal(t, openai.ChatMessagePartTypeImageURL, part.Type)
		require.NotNil(t, part.ImageURL)
		assert.Equal(t, png.DownloadURL, part.ImageURL.URL)
	})

	t.Run("image with non-vision model", func(t *testing.T) {
		msgs := BuildMessages(Request{Model: "gpt-3.5-turbo", Attachments: []schemas.Attachment{png}})
		part := msgs[1].MultiContent[1]
		assert.Equal(t, openai.ChatMessagePartTypeText, part.Type)
		assert.Contains(t, part.Text, "chart.png")
		assert.Contains(t, part.Text, "gpt-3.5-turbo")
		assert.Nil(t, part.ImageURL)
	})

	t.Run("presigned image url", func(t *testing.T) {
		a := schemas.Attachment{Filename: "photo.JPG", DownloadURL: "http://minio:9000/b/photo.JPG?X-Amz-Signature=abc"}
		msgs := BuildMessages(Request{Model: "gpt-4o-mini", Attachments: []schemas.Attachment{a}})
		assert.Equal(t, openai.ChatMessagePartTypeImageURL, msgs[1].MultiContent[1].Type)
	})

	t.Run("non-image attachment", func(t *testing.T) {
		pdf := schemas.Attachment{Filename: "rubric.pdf", DownloadURL: "https://cdn.example.com/rubric.pdf", ContentType: "application/pdf"}
		msgs := BuildMessages(Request{Model: "gpt-4o", Attachments: []schemas.Attachment{pdf}})
		assert.Equal(t, "[Attachment: rubric.pdf - application/pdf]", msgs[1].MultiContent[1].Text)
	})
}
