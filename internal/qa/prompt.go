package qa

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ai-judge/internal/schemas"
)

// Request is everything a judge needs to grade one answer.
type Request struct {
	JudgePrompt  string               `json:"judgePrompt"`
	QuestionText string               `json:"questionText"`
	Answer       string               `json:"answer"`
	Model        string               `json:"model"`
	Attachments  []schemas.Attachment `json:"attachments,omitempty"`
}

var visionModels = map[string]bool{
	"gpt-4o":               true,
	"gpt-4-turbo":          true,
	"gpt-4-vision-preview": true,
	"gpt-4o-mini":          true,
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

func SupportsVision(model string) bool {
	return visionModels[model]
}

// BuildMessages returns the system/user exchange sent to the judge model.
// Images only reach vision models; every other attachment is reduced to a
// text note so the call does not fail on models without image input.
func BuildMessages(req Request) []openai.ChatCompletionMessage {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: fmt.Sprintf("Question: %s\nAnswer: %s", req.QuestionText, req.Answer),
	}}

	vision := SupportsVision(req.Model)
	for _, a := range req.Attachments {
		switch {
		case isImageURL(a.DownloadURL) && vision:
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: a.DownloadURL},
			})
		case isImageURL(a.DownloadURL):
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("[Image attachment: %s - not processed by %s]", a.Filename, req.Model),
			})
		default:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("[Attachment: %s - %s]", a.Filename, a.ContentType),
			})
		}
	}

	return []openai.ChatCompletionMessage{
		{
			Role:         openai.ChatMessageRoleSystem,
			MultiContent: []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.JudgePrompt}},
		},
		{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		},
	}
}

// isImageURL checks the extension of the URL path, so presigned query
// strings do not hide the file type.
func isImageURL(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	return imageExts[strings.ToLower(path.Ext(p))]
}
