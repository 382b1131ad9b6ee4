package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/allanpk716/persodocs/internal/domain"
	"github.com/allanpk716/persodocs/pkg/docx"
)

// Scope 合并时处理哪些段落
type Scope string

const (
	// ScopeBody 只处理正文中的顶层段落
	ScopeBody Scope = "body"
	// ScopeAll 还处理表格、文本框、页眉和页脚中的段落
	ScopeAll Scope = "all"
)

// StampPropertyName 写入每个生成文档的自定义属性名
const StampPropertyName = "PersodocsRow"

// archiveEpoch 压缩包条目的修改时间固定，保证相同输入生成相同的压缩包
var archiveEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Options 批量合并选项
type Options struct {
	NameColumn          string
	OutputSuffix        string
	Extension           string
	MissingColumnPolicy MissingColumnPolicy
	DuplicateNamePolicy DuplicateNamePolicy
	Scope               Scope
	StampProperties     bool
	TemplateName        string
	MaxConcurrentRows   int
	DetailedLogging     bool
}

// DefaultOptions 返回默认选项：按 name 列命名，出错时中止整个批次
func DefaultOptions() Options {
	return Options{
		NameColumn:          "name",
		OutputSuffix:        "_personalized",
		Extension:           ".docx",
		MissingColumnPolicy: MissingColumnAbort,
		DuplicateNamePolicy: DuplicateKeep,
		Scope:               ScopeBody,
		MaxConcurrentRows:   1,
	}
}

// mergeProcessor 批量合并处理器实现
type mergeProcessor struct {
	resolver domain.PlaceholderResolver
	opts     Options
}

// NewMergeProcessor 创建新的批量合并处理器
func NewMergeProcessor(resolver domain.PlaceholderResolver, opts Options) domain.Merger {
	defaults := DefaultOptions()
	if opts.NameColumn == "" {
		opts.NameColumn = defaults.NameColumn
	}
	if opts.OutputSuffix == "" {
		opts.OutputSuffix = defaults.OutputSuffix
	}
	if opts.Extension == "" {
		opts.Extension = defaults.Extension
	}
	if !strings.HasPrefix(opts.Extension, ".") {
		opts.Extension = "." + opts.Extension
	}
	if opts.MissingColumnPolicy == "" {
		opts.MissingColumnPolicy = defaults.MissingColumnPolicy
	}
	if opts.DuplicateNamePolicy == "" {
		opts.DuplicateNamePolicy = defaults.DuplicateNamePolicy
	}
	if opts.Scope == "" {
		opts.Scope = defaults.Scope
	}
	if opts.MaxConcurrentRows < 1 {
		opts.MaxConcurrentRows = 1
	}

	return &mergeProcessor{
		resolver: resolver,
		opts:     opts,
	}
}

// renderedRow 一行数据生成的文档
type renderedRow struct {
	index   int
	name    string
	data    []byte
	doc     *docx.Document
	count   int
	missing []string
}

// Merge 模板只加载一次，每一行克隆模板、替换占位符、序列化后写入压缩包。
// 任意一行失败都会中止整个批次，此时 w 中的内容不完整，调用方应当丢弃
func (mp *mergeProcessor) Merge(ctx context.Context, template []byte, dataset *domain.Dataset, w io.Writer) (*domain.MergeReport, error) {
	tpl, err := docx.Load(template)
	if err != nil {
		return nil, &domain.FormatError{Kind: domain.FormatDocument, Name: mp.opts.TemplateName, Err: err}
	}

	var rows []domain.Row
	if dataset != nil {
		rows = dataset.Rows
	}

	// 先计算全部条目名，缺少命名列时在生成任何文档之前中止
	namer := newEntryNamer(mp.opts)
	names := make([]string, len(rows))
	for i, row := range rows {
		if names[i], err = namer.name(row, i+1); err != nil {
			return nil, err
		}
	}

	log.Printf("开始批量合并: %d 行数据", len(rows))

	report := &domain.MergeReport{Duplicates: namer.duplicates()}
	for name, count := range report.Duplicates {
		log.Printf("条目名 %s 重复 %d 次", name, count)
	}

	zipWriter := zip.NewWriter(w)
	if mp.opts.MaxConcurrentRows > 1 && len(rows) > 1 {
		err = mp.mergeParallel(ctx, tpl, rows, names, zipWriter, report)
	} else {
		err = mp.mergeSequential(ctx, tpl, rows, names, zipWriter, report)
	}
	if err != nil {
		return nil, err
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("关闭压缩包失败: %w", err)
	}

	log.Printf("批量合并完成，共生成 %d 个文档，替换 %d 个占位符", len(report.Entries), report.Replacements)
	return report, nil
}

func (mp *mergeProcessor) mergeSequential(ctx context.Context, tpl *docx.Document, rows []domain.Row, names []string, zw *zip.Writer, report *domain.MergeReport) error {
	for i, row := range rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// 顺序模式下文档直接写入压缩包条目，不保留序列化后的字节
		rendered, err := mp.renderRow(tpl, i, row, names[i], false)
		if err != nil {
			return err
		}
		if err := mp.writeEntry(zw, rendered, report, len(rows)); err != nil {
			return err
		}
	}
	return nil
}

// mergeParallel 多个协程并行生成文档，由单一写入者按行顺序写入压缩包。
// 同时在途的行数受信号量限制，避免所有文档同时驻留内存
func (mp *mergeProcessor) mergeParallel(ctx context.Context, tpl *docx.Document, rows []domain.Row, names []string, zw *zip.Writer, report *domain.MergeReport) error {
	window := int64(mp.opts.MaxConcurrentRows * 2)
	sem := semaphore.NewWeighted(window)
	results := make(chan *renderedRow, window)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		workers, wctx := errgroup.WithContext(gctx)
		workers.SetLimit(mp.opts.MaxConcurrentRows)

		var acquireErr error
		for i, row := range rows {
			if err := sem.Acquire(wctx, 1); err != nil {
				acquireErr = err
				break
			}
			workers.Go(func() error {
				rendered, err := mp.renderRow(tpl, i, row, names[i], true)
				if err != nil {
					return err
				}
				select {
				case results <- rendered:
					return nil
				case <-wctx.Done():
					return wctx.Err()
				}
			})
		}

		err := workers.Wait()
		close(results)
		if err != nil {
			return err
		}
		return acquireErr
	})

	g.Go(func() error {
		pending := make(map[int]*renderedRow)
		next := 0
		for rendered := range results {
			pending[rendered.index] = rendered
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := mp.writeEntry(zw, ready, report, len(rows)); err != nil {
					return err
				}
				sem.Release(1)
				next++
			}
		}
		// 未写完时生成端一定返回了错误
		return nil
	})

	return g.Wait()
}

// renderRow 克隆模板并替换占位符。serialize 为 true 时立即序列化并释放克隆
func (mp *mergeProcessor) renderRow(tpl *docx.Document, index int, row domain.Row, name string, serialize bool) (*renderedRow, error) {
	doc := tpl.Clone()
	rendered := &renderedRow{index: index, name: name}

	missing := make(map[string]bool)
	for _, paragraph := range mp.paragraphs(doc) {
		for _, run := range paragraph.Runs() {
			text := run.Text()
			if !strings.Contains(text, "{{") {
				continue
			}

			matches := mp.resolver.FindMatches(text, row)
			if len(matches) == 0 {
				continue
			}
			for _, match := range matches {
				if match.Found {
					rendered.count++
				} else if !missing[match.Name] {
					missing[match.Name] = true
					rendered.missing = append(rendered.missing, match.Name)
				}
				if mp.opts.DetailedLogging {
					log.Printf("第 %d 行: 替换 '%s' -> '%s'", index+1, match.Placeholder, match.Replacement)
				}
			}

			if resolved := mp.resolver.ReplaceMatches(text, matches); resolved != text {
				run.SetText(resolved)
			}
		}
	}

	if mp.opts.StampProperties {
		stamp, err := json.Marshal(struct {
			Row      int    `json:"row"`
			Name     string `json:"name"`
			Template string `json:"template,omitempty"`
		}{index + 1, name, mp.opts.TemplateName})
		if err != nil {
			return nil, &domain.RowError{Row: index + 1, Err: err}
		}
		if err := doc.SetCustomProperty(StampPropertyName, string(stamp)); err != nil {
			return nil, &domain.RowError{Row: index + 1, Err: err}
		}
	}

	if !serialize {
		rendered.doc = doc
		return rendered, nil
	}

	data, err := doc.Bytes()
	if err != nil {
		return nil, &domain.RowError{Row: index + 1, Err: err}
	}
	rendered.data = data
	return rendered, nil
}

func (mp *mergeProcessor) paragraphs(doc *docx.Document) []*docx.Paragraph {
	if mp.opts.Scope == ScopeAll {
		return doc.AllParagraphs()
	}
	return doc.Paragraphs()
}

// writeEntry 写入一个压缩包条目，写完后丢弃文档
func (mp *mergeProcessor) writeEntry(zw *zip.Writer, rendered *renderedRow, report *domain.MergeReport, total int) error {
	header := &zip.FileHeader{
		Name:     rendered.name,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return &domain.RowError{Row: rendered.index + 1, Err: fmt.Errorf("创建压缩包条目失败: %w", err)}
	}

	var size int64
	if rendered.doc != nil {
		size, err = rendered.doc.WriteTo(writer)
	} else {
		var n int
		n, err = writer.Write(rendered.data)
		size = int64(n)
	}
	if err != nil {
		return &domain.RowError{Row: rendered.index + 1, Err: fmt.Errorf("写入压缩包条目失败: %w", err)}
	}

	report.Entries = append(report.Entries, domain.EntryInfo{
		Name:         rendered.name,
		RowIndex:     rendered.index + 1,
		Size:         size,
		Replacements: rendered.count,
		Missing:      rendered.missing,
	})
	report.Replacements += rendered.count

	if mp.opts.DetailedLogging {
		log.Printf("[%d/%d] 生成文档: %s", rendered.index+1, total, rendered.name)
		if len(rendered.missing) > 0 {
			log.Printf("第 %d 行缺少列: %s", rendered.index+1, strings.Join(rendered.missing, ", "))
		}
	}

	rendered.doc = nil
	rendered.data = nil
	return nil
}

// MergeToBytes 合并到内存缓冲区，只有整个批次成功时才返回压缩包
func MergeToBytes(ctx context.Context, merger domain.Merger, template []byte, dataset *domain.Dataset) ([]byte, *domain.MergeReport, error) {
	var buf bytes.Buffer
	report, err := merger.Merge(ctx, template, dataset, &buf)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), report, nil
}
