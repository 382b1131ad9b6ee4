package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/allanpk716/persodocs/internal/domain"
)

// ErrNoHeader 表格中没有表头行
var ErrNoHeader = errors.New("缺少表头行")

// Option 读取选项
type Option func(*datasetReader)

// WithSheet 指定工作表，默认读取第一个工作表
func WithSheet(name string) Option {
	return func(r *datasetReader) {
		r.sheet = name
	}
}

// datasetReader 表格数据读取器实现
type datasetReader struct {
	sheet string
}

// NewDatasetReader 创建新的表格数据读取器
func NewDatasetReader(opts ...Option) domain.DatasetReader {
	r := &datasetReader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadDataset 读取表格，第一行作为列名。扩展名为 .csv 时按CSV读取，其余按XLSX读取
func (r *datasetReader) ReadDataset(ctx context.Context, src io.Reader, fileName string) (*domain.Dataset, error) {
	var (
		dataset *domain.Dataset
		err     error
	)
	if strings.EqualFold(filepath.Ext(fileName), ".csv") {
		dataset, err = r.readCSV(ctx, src)
	} else {
		dataset, err = r.readXLSX(ctx, src)
	}
	if err != nil {
		var fe *domain.FormatError
		if errors.As(err, &fe) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &domain.FormatError{Kind: domain.FormatSpreadsheet, Name: fileName, Err: err}
	}

	dataset.Name = fileName
	return dataset, nil
}

func (r *datasetReader) readXLSX(ctx context.Context, src io.Reader) (*domain.Dataset, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("工作簿中没有工作表")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
	}

	// 表头前的空行跳过，第一个非空行作为表头
	headerIdx := 0
	for headerIdx < len(rows) && isBlankRow(rows[headerIdx]) {
		headerIdx++
	}
	if headerIdx == len(rows) {
		return nil, ErrNoHeader
	}

	dataRows := rows[headerIdx+1:]
	dataset := &domain.Dataset{Columns: normalizeHeaders(widenHeader(rows[headerIdx], dataRows))}
	for i, cells := range dataRows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if isBlankRow(cells) {
			continue
		}

		// 工作表行号从 1 开始，数据紧跟在表头之后
		rowNum := headerIdx + i + 2
		row := make(domain.Row, len(dataset.Columns))
		for col, name := range dataset.Columns {
			var display string
			if col < len(cells) {
				display = cells[col]
			}
			value, err := cellValue(f, sheet, col+1, rowNum, display)
			if err != nil {
				return nil, err
			}
			row[name] = value
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return dataset, nil
}

// cellValue 数字单元格保留原始数值，显示文本使用单元格格式化后的结果
func cellValue(f *excelize.File, sheet string, col, row int, display string) (domain.Value, error) {
	if display == "" {
		return domain.EmptyValue(), nil
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return domain.Value{}, err
	}

	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return domain.Value{}, fmt.Errorf("读取单元格 %s 类型失败: %w", axis, err)
	}

	switch cellType {
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeDate:
		raw, err := f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
		if err != nil {
			return domain.Value{}, fmt.Errorf("读取单元格 %s 失败: %w", axis, err)
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return domain.NumberValue(n, display), nil
		}
	}

	return domain.StringValue(display), nil
}

func (r *datasetReader) readCSV(ctx context.Context, src io.Reader) (*domain.Dataset, error) {
	// 去掉 BOM，UTF-16 文件按 BOM 转成 UTF-8
	decoded := transform.NewReader(src, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1

	var header []string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		if err != nil {
			return nil, fmt.Errorf("读取CSV表头失败: %w", err)
		}
		if !isBlankRow(record) {
			header = record
			break
		}
	}

	var records [][]string
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取CSV失败: %w", err)
		}
		if !isBlankRow(record) {
			records = append(records, record)
		}
	}

	dataset := &domain.Dataset{Columns: normalizeHeaders(widenHeader(header, records))}
	for _, record := range records {
		row := make(domain.Row, len(dataset.Columns))
		for col, name := range dataset.Columns {
			row[name] = domain.EmptyValue()
			if col < len(record) && record[col] != "" {
				row[name] = domain.StringValue(record[col])
			}
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return dataset, nil
}

// widenHeader 数据行比表头宽时补上空列名，超出表头的单元格不会丢失
func widenHeader(header []string, rows [][]string) []string {
	width := len(header)
	for _, cells := range rows {
		// 行尾的空单元格不增加列
		n := len(cells)
		for n > width && strings.TrimSpace(cells[n-1]) == "" {
			n--
		}
		if n > width {
			width = n
		}
	}
	if width == len(header) {
		return header
	}

	widened := make([]string, width)
	copy(widened, header)
	return widened
}

// normalizeHeaders 列名原样保留；空列名记为 "Unnamed: N"，重复列名追加 ".1"、".2"
func normalizeHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := cell
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		}
		seen[name] = 0
		headers[i] = name
	}
	return headers
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
