package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var loaderOnce sync.Once

// BPETokenizer counts tokens with a tiktoken encoding. The BPE ranks are
// compiled into the binary so no network fetch happens at startup.
type BPETokenizer struct {
	mu       sync.Mutex
	encoding string
	enc      *tiktoken.Tiktoken
}

func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %s: %w", encoding, err)
	}
	return &BPETokenizer{encoding: encoding, enc: enc}, nil
}

func (t *BPETokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *BPETokenizer) Encoding() string {
	return t.encoding
}
