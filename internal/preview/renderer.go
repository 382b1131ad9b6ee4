// Package preview 把文档段落渲染成带样式的HTML片段，用于浏览器中只读预览
package preview

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/allanpk716/persodocs/internal/domain"
	"github.com/allanpk716/persodocs/pkg/docx"
)

// DefaultFontFamily 文本块没有设置字体时使用的字体
const DefaultFontFamily = "Arial"

// Renderer 预览渲染器，无状态，可并发使用
type Renderer struct {
	defaultFont string
}

// NewRenderer 创建预览渲染器，defaultFont 为空时使用 Arial
func NewRenderer(defaultFont string) *Renderer {
	if defaultFont == "" {
		defaultFont = DefaultFontFamily
	}
	return &Renderer{defaultFont: defaultFont}
}

// AlignmentClass 段落对齐方式对应的样式类，左对齐和未设置时为空
func AlignmentClass(a docx.Alignment) string {
	switch a {
	case docx.AlignCenter:
		return "text-center"
	case docx.AlignRight:
		return "text-right"
	case docx.AlignJustify:
		return "text-justify"
	default:
		return ""
	}
}

// RenderRun 渲染一个文本块
func (r *Renderer) RenderRun(run *docx.Run) (string, error) {
	return r.RenderStyledText(run.Text(), run.Style())
}

// RenderStyledText 按固定顺序包裹样式：strong、em、u 由内到外，
// 然后依次是字号、颜色和字体。文本为空时同样输出完整的包裹结构
func (r *Renderer) RenderStyledText(text string, style docx.RunStyle) (string, error) {
	node, err := r.runNode(text, style)
	if err != nil {
		return "", err
	}
	return renderNode(node)
}

func (r *Renderer) runNode(text string, style docx.RunStyle) (*html.Node, error) {
	node := &html.Node{Type: html.TextNode, Data: text}

	if style.Bold {
		node = wrap(atom.Strong, node)
	}
	if style.Italic {
		node = wrap(atom.Em, node)
	}
	if style.Underline {
		node = wrap(atom.U, node)
	}
	if style.SizePt != nil {
		// 磅值直接作为 px 使用，不做换算
		size := strconv.FormatFloat(*style.SizePt, 'f', -1, 64)
		node = wrap(atom.Span, node, html.Attribute{Key: "style", Val: "font-size:" + size + "px"})
	}
	if style.Color != "" {
		color, err := hexColor(style.Color)
		if err != nil {
			return nil, err
		}
		node = wrap(atom.Span, node, html.Attribute{Key: "style", Val: "color:" + color})
	}

	font := style.FontFamily
	if font == "" {
		font = r.defaultFont
	}
	return wrap(atom.Span, node, html.Attribute{Key: "style", Val: "font-family:" + font + ";"}), nil
}

// hexColor 把 RRGGBB 转成小写的 #rrggbb
func hexColor(value string) (string, error) {
	rgb, err := hex.DecodeString(value)
	if err != nil || len(rgb) != 3 {
		return "", &domain.StyleError{Attribute: "color", Value: value}
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), nil
}

// RenderParagraph 渲染一个段落。文本块样式无效时降级为纯文本，不影响其他文本块
func (r *Renderer) RenderParagraph(p *docx.Paragraph) string {
	para := wrap(atom.P, nil, html.Attribute{Key: "class", Val: AlignmentClass(p.Alignment())})

	for _, run := range p.Runs() {
		text := run.Text()
		node, err := r.runNode(text, run.Style())
		if err != nil {
			log.Printf("文本块样式无效，按纯文本显示: %v", err)
			node = &html.Node{Type: html.TextNode, Data: text}
		}
		para.AppendChild(node)
	}

	out, err := renderNode(para)
	if err != nil {
		// 渲染到内存缓冲区不会失败
		log.Printf("渲染段落失败: %v", err)
		return ""
	}
	return out
}

// RenderDocument 按顺序渲染正文中的顶层段落
func (r *Renderer) RenderDocument(doc *docx.Document) []string {
	paragraphs := doc.Paragraphs()
	fragments := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		fragments = append(fragments, r.RenderParagraph(p))
	}
	return fragments
}

func wrap(a atom.Atom, child *html.Node, attrs ...html.Attribute) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
	if child != nil {
		n.AppendChild(child)
	}
	return n
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
