package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/akolanti/DocAssist/pkg/logger_i"
)

const encodingName = "cl100k_base"

// charsPerToken approximates token counts when the encoding cannot load.
const charsPerToken = 4

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encoding     *tiktoken.Tiktoken
	encodingOnce sync.Once
	logger       = logger_i.NewLogger("Tokens")
)

func loadEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			logger.Warn("tiktoken unavailable, estimating by length", "error", err)
			return
		}
		encoding = enc
	})
	return encoding
}

// Count returns the number of tokens text costs in a prompt.
func Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := loadEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
}

// Trim cuts text to at most max tokens.
func Trim(text string, max int) string {
	if max <= 0 {
		return ""
	}
	enc := loadEncoding()
	if enc == nil {
		limit := max * charsPerToken
		if utf8.RuneCountInString(text) <= limit {
			return text
		}
		return string([]rune(text)[:limit])
	}
	ids := enc.Encode(text, nil, nil)
	if len(ids) <= max {
		return text
	}
	return enc.Decode(ids[:max])
}
