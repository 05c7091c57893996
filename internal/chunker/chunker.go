// Package chunker 将长文本按句子切分为不超过给定长度的片段。
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength 是未指定长度时使用的分块上限（字符数）。
const DefaultMaxLength = 500

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Split 按 . ! ? 切句，再贪心地用 ". " 拼接，每个分块以 "." 结尾。
// 长度按 rune 计算并包含结尾的 "."；单个句子加上结尾的 "." 超过 maxLength 时原样输出，不再细分，
// 因此恰好 maxLength 长的句子会得到 maxLength+1 长的分块。
// 空白输入返回 nil，其余输入至少返回一个分块。
func Split(text string, maxLength int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if !sentenceBoundary.MatchString(text) {
		return []string{strings.TrimSpace(text)}
	}

	var sentences []string
	for _, s := range sentenceBoundary.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return []string{text}
	}

	var chunks []string
	current := ""
	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		candidate := current + ". " + sentence
		if utf8.RuneCountInString(candidate)+1 > maxLength {
			chunks = append(chunks, current+".")
			current = sentence
			continue
		}
		current = candidate
	}
	if current != "" {
		chunks = append(chunks, current+".")
	}
	return chunks
}
