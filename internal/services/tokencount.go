package services

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultTokenModel = "gpt-4o"

// avgCharsPerToken is the conservative estimate used when no encoding is
// available for the requested model.
const avgCharsPerToken = 4

var (
	encodingMu    sync.Mutex
	encodingCache = map[string]*tiktoken.Tiktoken{}
)

func encodingForModel(model string) *tiktoken.Tiktoken {
	encodingMu.Lock()
	defer encodingMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// cache the miss so we don't retry on every call
			encodingCache[model] = nil
			return nil
		}
	}
	encodingCache[model] = enc
	return enc
}

// CountTokens counts tokens in text for the given model, falling back to a
// chars/4 estimate when the tokenizer has no encoding for it.
func CountTokens(text string, model string) int {
	if text == "" {
		return 0
	}
	if model == "" {
		model = defaultTokenModel
	}
	if enc := encodingForModel(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	n := len(text) / avgCharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}
