package matcher

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/allanpk716/persodocs/internal/domain"
)

// placeholderPattern 非贪婪匹配 {{...}}，名称可以为空或只有空白
var placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// placeholderMatcher 占位符匹配器实现
type placeholderMatcher struct{}

// NewPlaceholderMatcher 创建新的占位符匹配器
func NewPlaceholderMatcher() domain.PlaceholderResolver {
	return &placeholderMatcher{}
}

// FindMatches 从左到右查找内容中所有不重叠的占位符，并在行中查找对应的值
func (pm *placeholderMatcher) FindMatches(content string, row domain.Row) []domain.Match {
	var matches []domain.Match

	for _, index := range placeholderPattern.FindAllStringSubmatchIndex(content, -1) {
		name := strings.TrimSpace(content[index[2]:index[3]])
		value, found := Lookup(row, name)
		matches = append(matches, domain.Match{
			Placeholder: content[index[0]:index[1]],
			Name:        name,
			Replacement: value.String(),
			Found:       found,
			StartPos:    index[0],
			EndPos:      index[1],
		})
	}

	return matches
}

// ReplaceMatches 根据匹配结果替换内容，匹配项需按位置升序排列
func (pm *placeholderMatcher) ReplaceMatches(content string, matches []domain.Match) string {
	if len(matches) == 0 {
		return content
	}

	var sb strings.Builder
	last := 0
	for _, match := range matches {
		if match.StartPos < last || match.EndPos > len(content) {
			continue
		}
		sb.WriteString(content[last:match.StartPos])
		sb.WriteString(match.Replacement)
		last = match.EndPos
	}
	sb.WriteString(content[last:])

	return sb.String()
}

// Resolve 替换一个文本块中的全部占位符，缺失的列替换为空字符串
func (pm *placeholderMatcher) Resolve(content string, row domain.Row) string {
	if !strings.Contains(content, "{{") {
		return content
	}
	return pm.ReplaceMatches(content, pm.FindMatches(content, row))
}

// Lookup 在行中查找列值：先精确匹配，再按 NFC 规范化和大小写折叠匹配
func Lookup(row domain.Row, name string) (domain.Value, bool) {
	if value, ok := row[name]; ok {
		return value, true
	}

	fold := cases.Fold()
	target := fold.String(norm.NFC.String(name))

	var candidates []string
	for key := range row {
		if fold.String(norm.NFC.String(strings.TrimSpace(key))) == target {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return domain.EmptyValue(), false
	}

	// 多个列折叠后相同时取字典序最小的，保证结果稳定
	sort.Strings(candidates)
	return row[candidates[0]], true
}

// ExtractNames 按出现顺序返回内容中的占位符名称（去重）
func ExtractNames(content string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// GetMatchStats 统计每个占位符名称出现的次数
func GetMatchStats(content string) map[string]int {
	stats := make(map[string]int)
	for _, match := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		stats[strings.TrimSpace(match[1])]++
	}
	return stats
}

// IsPlaceholder 判断整个字符串是否恰好是一个占位符
func IsPlaceholder(s string) bool {
	loc := placeholderPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// FormatPlaceholder 将列名格式化为 {{name}}
func FormatPlaceholder(name string) string {
	if IsPlaceholder(name) {
		return name
	}
	return "{{" + name + "}}"
}
