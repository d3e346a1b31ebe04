package ai

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// PromptMessage is one turn of conversation history sent to a provider.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider streams a completion for a model it hosts. Deltas are delivered
// through onDelta as they arrive; the full text is returned once the stream
// ends.
type Provider interface {
	StreamCompletion(ctx context.Context, model string, msgs []PromptMessage, onDelta func(delta string) error) (string, error)
}

// parseSSE reads a text/event-stream body and invokes emit for each data
// payload. Comment lines and the [DONE] sentinel are skipped.
func parseSSE(r io.Reader, emit func(data string) error) error {
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 1024*1024)

	var dataLines []string
	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		joined := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		if strings.TrimSpace(joined) == "" || strings.TrimSpace(joined) == "[DONE]" {
			return nil
		}
		return emit(joined)
	}

	for s.Scan() {
		line := s.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return flush()
}
