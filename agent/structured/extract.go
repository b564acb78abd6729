package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is matched (errors.Is) by every NoJSONError.
var ErrNoJSON = errors.New("no JSON object found in model output")

// excerptRunes 错误信息中保留的原文长度
const excerptRunes = 200

// NoJSONError is returned when model output contains no parseable object.
type NoJSONError struct {
	Excerpt string
}

func (e *NoJSONError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNoJSON.Error(), e.Excerpt)
}

func (e *NoJSONError) Is(target error) bool {
	return target == ErrNoJSON
}

// 第一个 markdown 代码块，语言标签可选
var fencePattern = regexp.MustCompile("(?s)```(?:[jJ][sS][oO][nN])?[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON pulls the first JSON object out of free-form model output.
//
// Strategies, in order:
//  1. the whole trimmed text, when it parses as an object
//  2. the body of the first fenced code block
//  3. a brace-balanced scan that ignores braces inside string literals,
//     moving on to the next '{' when a span is unbalanced or fails to parse
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	if raw, ok := parseObject(trimmed); ok {
		return raw, nil
	}

	if m := fencePattern.FindStringSubmatch(trimmed); len(m) == 2 {
		if raw, ok := parseObject(strings.TrimSpace(m[1])); ok {
			return raw, nil
		}
	}

	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		// 未闭合的 '{' 可能只是散文里的字符，后面的 '{' 仍可能闭合
		if end := matchBrace(trimmed, start); end >= 0 {
			if raw, ok := parseObject(trimmed[start : end+1]); ok {
				return raw, nil
			}
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, &NoJSONError{Excerpt: truncateRunes(trimmed, excerptRunes)}
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseObject(s string) (json.RawMessage, bool) {
	if s == "" || s[0] != '{' {
		return nil, false
	}
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
