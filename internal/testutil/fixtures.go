// Package testutil 构造测试用的 DOCX 和 XLSX 文件
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Part 压缩包中额外的文件
type Part struct {
	Name    string
	Content string
}

// Document 用正文片段构造完整的 document.xml
func Document(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="` + wordNamespace + `"><w:body>` + body + `</w:body></w:document>`
}

// P 构造段落，align 为空时不写 w:jc
func P(align string, runs ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	if align != "" {
		fmt.Fprintf(&sb, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	for _, r := range runs {
		sb.WriteString(r)
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// R 构造文本块，rPr 为 w:rPr 的内部XML
func R(rPr, text string) string {
	var sb strings.Builder
	sb.WriteString("<w:r>")
	if rPr != "" {
		sb.WriteString("<w:rPr>" + rPr + "</w:rPr>")
	}
	fmt.Fprintf(&sb, `<w:t xml:space="preserve">%s</w:t>`, escape(text))
	sb.WriteString("</w:r>")
	return sb.String()
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// BuildDocx 构造只包含必要文件结构的DOCX
func BuildDocx(t testing.TB, documentXML string, extra ...Part) []byte {
	t.Helper()

	parts := []Part{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
	<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
	<Default Extension="xml" ContentType="application/xml"/>
	<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
	<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`},
		{"word/document.xml", documentXML},
	}
	parts = append(parts, extra...)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range parts {
		f, err := w.Create(p.Name)
		if err != nil {
			t.Fatalf("创建测试文件失败: %v", err)
		}
		if _, err := f.Write([]byte(p.Content)); err != nil {
			t.Fatalf("写入测试文件失败: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("关闭ZIP写入器失败: %v", err)
	}
	return buf.Bytes()
}

// BuildXLSX 构造第一行为表头的工作簿
func BuildXLSX(t testing.TB, header []string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("写入表头失败: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("计算单元格坐标失败: %v", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("写入第 %d 行失败: %v", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("保存工作簿失败: %v", err)
	}
	return buf.Bytes()
}
