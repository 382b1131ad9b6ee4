package cmd

import (
	"bytes"
	"fmt"
	"html/template"
)

var previewPage = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 800px; margin: 2em auto; }
.text-center { text-align: center; }
.text-right { text-align: right; }
.text-justify { text-align: justify; }
</style>
</head>
<body>
{{range .Paragraphs}}{{.}}
{{end}}</body>
</html>
`))

// RenderPreviewPage 把段落片段放进完整的HTML页面。片段已经转义过，按原样输出
func RenderPreviewPage(title string, fragments []string) ([]byte, error) {
	paragraphs := make([]template.HTML, len(fragments))
	for i, fragment := range fragments {
		paragraphs[i] = template.HTML(fragment)
	}

	var buf bytes.Buffer
	err := previewPage.Execute(&buf, struct {
		Title      string
		Paragraphs []template.HTML
	}{title, paragraphs})
	if err != nil {
		return nil, fmt.Errorf("生成预览页面失败: %w", err)
	}
	return buf.Bytes(), nil
}
