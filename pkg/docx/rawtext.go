package docx

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	ndocx "github.com/nguyenthenguyen/docx"
	"golang.org/x/net/html"
)

var (
	paragraphEndPattern = regexp.MustCompile(`</w:p>`)
	xmlTagPattern       = regexp.MustCompile(`<[^>]*>`)
)

// ExtractRawText 提取 document.xml 的纯文本，不区分文本块边界，段落之间以换行分隔。
// 被格式边界拆开的占位符在这里是连续的
func ExtractRawText(data []byte) (string, error) {
	reader, err := ndocx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开DOCX文件失败: %w", err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()
	content = paragraphEndPattern.ReplaceAllString(content, "\n")
	content = xmlTagPattern.ReplaceAllString(content, "")

	return strings.Trim(html.UnescapeString(content), "\r\n"), nil
}
