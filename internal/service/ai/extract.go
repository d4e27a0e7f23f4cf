package ai

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extractor pulls generated text out of a provider response body.
type Extractor func(body []byte) (string, bool)

// Path extracts a string value at a gjson path.
func Path(path string) Extractor {
	return func(body []byte) (string, bool) {
		return nonEmptyString(gjson.GetBytes(body, path))
	}
}

// LastOf extracts field from the last element of the array at arrayPath.
func LastOf(arrayPath, field string) Extractor {
	return func(body []byte) (string, bool) {
		items := gjson.GetBytes(body, arrayPath).Array()
		if len(items) == 0 {
			return "", false
		}
		return nonEmptyString(items[len(items)-1].Get(field))
	}
}

// ExtractText applies strategies in order and returns the first non-empty text.
func ExtractText(body []byte, strategies []Extractor) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	for _, extract := range strategies {
		if text, ok := extract(body); ok {
			return text, true
		}
	}
	return "", false
}

func nonEmptyString(r gjson.Result) (string, bool) {
	if r.Type != gjson.String {
		return "", false
	}
	text := strings.TrimSpace(r.String())
	return text, text != ""
}

// OllamaExtractors covers /api/chat, older multi-message answers, /api/generate and the
// OpenAI-compatible endpoint, in that order.
var OllamaExtractors = []Extractor{
	Path("message.content"),
	LastOf("messages", "content"),
	Path("response"),
	Path("choices.0.message.content"),
}

// InferenceExtractors covers text-generation task answers (array or object form) and
// chat-completion answers.
var InferenceExtractors = []Extractor{
	Path("0.generated_text"),
	Path("generated_text"),
	Path("choices.0.message.content"),
	Path("choices.0.text"),
}
