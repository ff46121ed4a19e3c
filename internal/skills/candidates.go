package skills

import (
	"strings"
	"unicode/utf8"
)

var skillSectionMarkers = []string{
	"技能", "专业技能", "技术技能", "核心技能", "技术栈",
	"skills", "technical skills", "core competencies", "tech stack",
}

// maxHeadingLen 不以冒号结尾的行，短于该长度才视为章节标题
const maxHeadingLen = 20

// ExtractCandidates 从原始文本中找出候选技能
// 优先读取技能章节中的条目；没有技能章节时扫描文本中出现的已知技能名和别名
func (e *Extractor) ExtractCandidates(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	inSection := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if isSkillHeading(trimmed) {
			inSection = true
			// "技能: Solidity, Go" 这类同一行的条目
			if _, rest, ok := cutColon(trimmed); ok {
				for _, item := range SplitItems(rest) {
					add(item)
				}
			}
			continue
		}
		if inSection && (trimmed == "" || endsWithColon(trimmed)) {
			inSection = false
		}
		if inSection {
			for _, item := range SplitItems(trimmed) {
				add(item)
			}
		}
	}

	if len(out) > 0 {
		return out
	}

	lower := strings.ToLower(text)
	for _, group := range e.taxonomy {
		for _, entry := range group.Entries {
			if containsTerm(lower, strings.ToLower(entry.Name)) {
				add(entry.Name)
				continue
			}
			for _, alias := range entry.Aliases {
				if containsTerm(lower, strings.ToLower(alias)) {
					add(entry.Name)
					break
				}
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func isSkillHeading(line string) bool {
	if line == "" {
		return false
	}
	lower := strings.ToLower(line)
	head := lower
	if h, _, ok := cutColon(lower); ok {
		head = h
	}
	for _, marker := range skillSectionMarkers {
		if !strings.Contains(head, marker) {
			continue
		}
		if endsWithColon(lower) || utf8.RuneCountInString(lower) < maxHeadingLen {
			return true
		}
		// 标题后直接跟条目
		if _, rest, ok := cutColon(lower); ok && strings.TrimSpace(rest) != "" && utf8.RuneCountInString(head) < maxHeadingLen {
			return true
		}
	}
	return false
}

func endsWithColon(s string) bool {
	return strings.HasSuffix(s, ":") || strings.HasSuffix(s, "：")
}

// cutColon 在第一个半角或全角冒号处切分
func cutColon(s string) (string, string, bool) {
	i := strings.IndexAny(s, ":：")
	if i < 0 {
		return s, "", false
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+size:], true
}

// SplitItems 按逗号、分号、顿号或项目符号拆分一行
func SplitItems(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.ContainsAny(line, ",，、") {
		return trimAll(strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == '，' || r == '、' }))
	}
	if strings.ContainsAny(line, ";；") {
		return trimAll(strings.FieldsFunc(line, func(r rune) bool { return r == ';' || r == '；' }))
	}
	for _, bullet := range []string{"•", "-", "*", "·"} {
		if strings.HasPrefix(line, bullet) {
			return trimAll([]string{strings.TrimPrefix(line, bullet)})
		}
	}
	return []string{line}
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		it = strings.TrimLeft(it, "•-*· ")
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
