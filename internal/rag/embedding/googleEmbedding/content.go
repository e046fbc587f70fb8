package googleEmbedding

import (
	"errors"

	"github.com/akolanti/MedIngest/internal/rag/guard"
	"google.golang.org/genai"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// IsTransient retries rate limits and server errors from the Gemini API,
// whichever transport reported them.
func IsTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return guard.IsTransientHTTP(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return guard.IsTransientHTTP(apiErrPtr.Code)
	}
	return guard.IsTransientGRPC(err)
}
