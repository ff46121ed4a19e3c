package skills

import (
	"strings"
	"unicode/utf8"
)

// isWordByte ASCII字母数字，用于判断英文词边界
func isWordByte(b byte) bool {
	return b < utf8.RuneSelf && (b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9')
}

// containsTerm 判断 haystack 是否包含 term
// term 的首尾为ASCII字母数字时要求落在词边界上，避免 "ts" 命中 "smart contracts"
// 中文等非ASCII字符本身即视为边界
func containsTerm(haystack, term string) bool {
	if term == "" {
		return false
	}
	checkStart := isWordByte(term[0])
	checkEnd := isWordByte(term[len(term)-1])

	offset := 0
	for {
		i := strings.Index(haystack[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)
		okStart := !checkStart || start == 0 || !isWordByte(haystack[start-1])
		okEnd := !checkEnd || end == len(haystack) || !isWordByte(haystack[end])
		if okStart && okEnd {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
}

// containsAny 任一关键词命中
func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if containsTerm(text, t) {
			return true
		}
	}
	return false
}
