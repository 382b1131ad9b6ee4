package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const (
	mainDocumentPart = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	packageRelsPart  = "_rels/.rels"
)

var (
	// ErrMissingMainPart 压缩包中没有 word/document.xml
	ErrMissingMainPart = errors.New("未找到document.xml文件")
	// ErrMissingBody document.xml 中没有 w:body
	ErrMissingBody = errors.New("document.xml缺少body元素")
)

// part 压缩包中的一个文件
type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
	xml      *etree.Document
	dirty    bool
}

// Document 内存中的DOCX文档，段落和文本块基于XML树
type Document struct {
	parts []*part
	index map[string]*part
}

// Load 从字节加载DOCX文档
func Load(data []byte) (*Document, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// Open 从 io.ReaderAt 加载DOCX文档
func Open(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("打开DOCX文件失败: %w", err)
	}

	doc := &Document{index: make(map[string]*part, len(zr.File))}
	for _, file := range zr.File {
		content, err := readZipFile(file)
		if err != nil {
			return nil, err
		}

		p := &part{
			name:     file.Name,
			method:   file.Method,
			modified: file.Modified,
			data:     content,
		}
		if isStoryPart(file.Name) {
			x := etree.NewDocument()
			if err := x.ReadFromBytes(content); err != nil {
				return nil, fmt.Errorf("解析 %s 失败: %w", file.Name, err)
			}
			p.xml = x
		}

		doc.parts = append(doc.parts, p)
		doc.index[file.Name] = p
	}

	main := doc.index[mainDocumentPart]
	if main == nil || main.xml == nil {
		return nil, ErrMissingMainPart
	}
	if doc.body() == nil {
		return nil, ErrMissingBody
	}

	return doc, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("打开文件 %s 失败: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("读取文件 %s 失败: %w", file.Name, err)
	}
	return content, nil
}

// isStoryPart 正文、页眉、页脚需要解析成XML树
func isStoryPart(name string) bool {
	if name == mainDocumentPart {
		return true
	}
	if !strings.HasSuffix(name, ".xml") {
		return false
	}
	return strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")
}

// Clone 深拷贝文档，拷贝后的修改不会影响原文档
func (d *Document) Clone() *Document {
	c := &Document{
		parts: make([]*part, 0, len(d.parts)),
		index: make(map[string]*part, len(d.parts)),
	}
	for _, p := range d.parts {
		cp := *p
		if p.xml != nil {
			cp.xml = p.xml.Copy()
		}
		c.parts = append(c.parts, &cp)
		c.index[cp.name] = &cp
	}
	return c
}

// PartNames 按压缩包顺序返回所有文件名
func (d *Document) PartNames() []string {
	names := make([]string, 0, len(d.parts))
	for _, p := range d.parts {
		names = append(names, p.name)
	}
	return names
}

// PartData 返回文件当前内容，修改过的XML会重新序列化
func (d *Document) PartData(name string) ([]byte, bool, error) {
	p, ok := d.index[name]
	if !ok {
		return nil, false, nil
	}
	content, err := p.content()
	if err != nil {
		return nil, true, err
	}
	return content, true, nil
}

func (p *part) content() ([]byte, error) {
	if !p.dirty || p.xml == nil {
		return p.data, nil
	}
	content, err := p.xml.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("序列化 %s 失败: %w", p.name, err)
	}
	return content, nil
}

// WriteTo 把文档序列化为DOCX写入 w，未修改的文件按原字节写出
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zipWriter := zip.NewWriter(cw)

	for _, p := range d.parts {
		content, err := p.content()
		if err != nil {
			return cw.n, err
		}

		header := &zip.FileHeader{
			Name:     p.name,
			Method:   p.method,
			Modified: p.modified,
		}
		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return cw.n, fmt.Errorf("创建ZIP文件头失败: %w", err)
		}
		if _, err := writer.Write(content); err != nil {
			return cw.n, fmt.Errorf("写入文件内容失败: %w", err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return cw.n, fmt.Errorf("关闭ZIP写入器失败: %w", err)
	}
	return cw.n, nil
}

// Bytes 把文档序列化为字节
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Paragraphs 返回正文中的顶层段落，不包括表格中的段落
func (d *Document) Paragraphs() []*Paragraph {
	main := d.index[mainDocumentPart]
	var paragraphs []*Paragraph
	for _, el := range d.body().SelectElements("w:p") {
		paragraphs = append(paragraphs, &Paragraph{el: el, part: main})
	}
	return paragraphs
}

// BodyParagraphs 返回正文中的全部段落，包括表格和文本框中的段落
func (d *Document) BodyParagraphs() []*Paragraph {
	main := d.index[mainDocumentPart]
	var paragraphs []*Paragraph
	for _, el := range d.body().FindElements(".//w:p") {
		paragraphs = append(paragraphs, &Paragraph{el: el, part: main})
	}
	return paragraphs
}

// AllParagraphs 返回正文、页眉和页脚中的全部段落
func (d *Document) AllParagraphs() []*Paragraph {
	paragraphs := d.BodyParagraphs()
	main := d.index[mainDocumentPart]

	for _, p := range d.parts {
		if p == main || p.xml == nil || !isStoryPart(p.name) {
			continue
		}
		root := p.xml.Root()
		if root == nil {
			continue
		}
		for _, el := range root.FindElements(".//w:p") {
			paragraphs = append(paragraphs, &Paragraph{el: el, part: p})
		}
	}
	return paragraphs
}

func (d *Document) body() *etree.Element {
	main := d.index[mainDocumentPart]
	root := main.xml.Root()
	if root == nil {
		return nil
	}
	return root.SelectElement("w:body")
}

// xmlPart 按需把文件解析为XML树
func (d *Document) xmlPart(name string) (*part, error) {
	p, ok := d.index[name]
	if !ok {
		return nil, nil
	}
	if p.xml == nil {
		x := etree.NewDocument()
		if err := x.ReadFromBytes(p.data); err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", name, err)
		}
		p.xml = x
	}
	return p, nil
}

// addXMLPart 新增一个XML文件
func (d *Document) addXMLPart(name string, x *etree.Document) *part {
	p := &part{
		name:   name,
		method: zip.Deflate,
		xml:    x,
		dirty:  true,
	}
	if main := d.index[mainDocumentPart]; main != nil {
		p.modified = main.modified
	}
	d.parts = append(d.parts, p)
	d.index[name] = p
	return p
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}
