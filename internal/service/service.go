// Package service 模板管理与批量生成的业务逻辑
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/allanpk716/persodocs/internal/domain"
	"github.com/allanpk716/persodocs/internal/matcher"
	"github.com/allanpk716/persodocs/internal/preview"
	"github.com/allanpk716/persodocs/internal/storage"
	"github.com/allanpk716/persodocs/pkg/docx"
)

const (
	// DefaultArchiveName 下载的压缩包文件名
	DefaultArchiveName = "personalized_documents.zip"
	// ArchiveContentType 压缩包的MIME类型
	ArchiveContentType = "application/zip"

	maxSuggestions = 3
)

// Download 生成结果
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
	Report      *domain.MergeReport
}

// Suggestion 数据集中没有对应列的占位符，以及相近的列名
type Suggestion struct {
	Placeholder string
	Columns     []string
}

// InspectReport 模板检查结果
type InspectReport struct {
	Placeholders []string
	// Split 被格式边界拆开、合并时不会被替换的占位符
	Split     []string
	Unmatched []Suggestion
}

// TemplateService 模板服务，所有协作者通过构造函数注入
type TemplateService struct {
	storage     storage.Storage
	merger      domain.Merger
	reader      domain.DatasetReader
	renderer    *preview.Renderer
	archiveName string
}

// NewTemplateService 创建模板服务，archiveName 为空时使用默认文件名
func NewTemplateService(store storage.Storage, merger domain.Merger, reader domain.DatasetReader, renderer *preview.Renderer, archiveName string) *TemplateService {
	if archiveName == "" {
		archiveName = DefaultArchiveName
	}
	return &TemplateService{
		storage:     store,
		merger:      merger,
		reader:      reader,
		renderer:    renderer,
		archiveName: archiveName,
	}
}

// SaveTemplate 校验模板可以解析后再保存，失败时返回 SaveError
func (s *TemplateService) SaveTemplate(ctx context.Context, key string, data []byte) error {
	if _, err := docx.Load(data); err != nil {
		return &domain.SaveError{
			Key: key,
			Err: &domain.FormatError{Kind: domain.FormatDocument, Name: key, Err: err},
		}
	}

	if err := s.storage.Put(ctx, key, data); err != nil {
		return &domain.SaveError{Key: key, Err: err}
	}

	log.Printf("模板已保存: %s (%d 字节)", key, len(data))
	return nil
}

// DeleteTemplate 删除模板
func (s *TemplateService) DeleteTemplate(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil {
		return mapNotFound(key, err)
	}
	log.Printf("模板已删除: %s", key)
	return nil
}

// Template 读取模板内容
func (s *TemplateService) Template(ctx context.Context, key string) ([]byte, error) {
	data, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, mapNotFound(key, err)
	}
	return data, nil
}

// Generate 读取数据集并为每一行生成一个文档，返回整个压缩包。
// 任意一行失败时不返回任何结果
func (s *TemplateService) Generate(ctx context.Context, key string, data io.Reader, dataName string) (*Download, error) {
	template, err := s.Template(ctx, key)
	if err != nil {
		return nil, err
	}

	dataset, err := s.reader.ReadDataset(ctx, data, dataName)
	if err != nil {
		return nil, err
	}
	if dataset.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", dataName, domain.ErrEmptyDataset)
	}

	log.Printf("使用模板 %s 和数据 %s 生成 %d 个文档", key, dataName, dataset.Len())

	var buf bytes.Buffer
	report, err := s.merger.Merge(ctx, template, dataset, &buf)
	if err != nil {
		return nil, err
	}

	return &Download{
		Filename:    s.archiveName,
		ContentType: ArchiveContentType,
		Data:        buf.Bytes(),
		Report:      report,
	}, nil
}

// Preview 把模板正文渲染为HTML段落片段
func (s *TemplateService) Preview(ctx context.Context, key string) ([]string, error) {
	template, err := s.Template(ctx, key)
	if err != nil {
		return nil, err
	}

	doc, err := docx.Load(template)
	if err != nil {
		return nil, &domain.FormatError{Kind: domain.FormatDocument, Name: key, Err: err}
	}
	return s.renderer.RenderDocument(doc), nil
}

// Inspect 列出模板中的占位符。columns 不为空时同时报告没有对应列的占位符和相近的列名
func (s *TemplateService) Inspect(ctx context.Context, key string, columns []string) (*InspectReport, error) {
	template, err := s.Template(ctx, key)
	if err != nil {
		return nil, err
	}

	doc, err := docx.Load(template)
	if err != nil {
		return nil, &domain.FormatError{Kind: domain.FormatDocument, Name: key, Err: err}
	}
	rawText, err := docx.ExtractRawText(template)
	if err != nil {
		return nil, &domain.FormatError{Kind: domain.FormatDocument, Name: key, Err: err}
	}

	var runTexts []string
	for _, paragraph := range doc.BodyParagraphs() {
		for _, run := range paragraph.Runs() {
			runTexts = append(runTexts, run.Text())
		}
	}

	inventory := matcher.BuildInventory(rawText, runTexts)
	report := &InspectReport{
		Placeholders: inventory.Names,
		Split:        inventory.Split,
	}
	for _, name := range inventory.Split {
		log.Printf("警告: 占位符 {{%s}} 被格式拆开，合并时不会被替换", name)
	}

	if len(columns) == 0 {
		return report, nil
	}

	header := make(domain.Row, len(columns))
	for _, column := range columns {
		header[column] = domain.EmptyValue()
	}
	for _, name := range inventory.Names {
		if _, ok := matcher.Lookup(header, name); ok {
			continue
		}
		report.Unmatched = append(report.Unmatched, Suggestion{
			Placeholder: name,
			Columns:     suggestColumns(name, columns),
		})
	}
	return report, nil
}

// suggestColumns 模糊匹配相近的列名。占位符是列名的子序列时按得分排序，
// 否则反过来查找是占位符子序列的列名
func suggestColumns(name string, columns []string) []string {
	lowered := make([]string, len(columns))
	for i, column := range columns {
		lowered[i] = strings.ToLower(column)
	}
	target := strings.ToLower(name)

	var suggestions []string
	for _, match := range fuzzy.Find(target, lowered) {
		suggestions = append(suggestions, columns[match.Index])
		if len(suggestions) == maxSuggestions {
			return suggestions
		}
	}
	if len(suggestions) > 0 {
		return suggestions
	}

	for i, column := range lowered {
		if column != "" && len(fuzzy.Find(column, []string{target})) > 0 {
			suggestions = append(suggestions, columns[i])
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}
	return suggestions
}

func mapNotFound(key string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", key, domain.ErrTemplateNotFound)
	}
	return err
}
