package domain

import (
	"context"
	"io"
	"strconv"
)

// PlaceholderResolver 占位符解析器接口
type PlaceholderResolver interface {
	FindMatches(content string, row Row) []Match
	ReplaceMatches(content string, matches []Match) string
	Resolve(content string, row Row) string
}

// DatasetReader 表格数据读取接口
type DatasetReader interface {
	ReadDataset(ctx context.Context, r io.Reader, fileName string) (*Dataset, error)
}

// Merger 批量合并接口，把每一行数据渲染成一个文档并写入压缩包
type Merger interface {
	Merge(ctx context.Context, template []byte, dataset *Dataset, w io.Writer) (*MergeReport, error)
}

// Match 表示一个占位符匹配项
type Match struct {
	Placeholder string // 原始占位符 (如 {{ name }})
	Name        string // 去掉首尾空白后的列名
	Replacement string // 替换值
	Found       bool   // 行中是否存在该列
	StartPos    int    // 开始位置
	EndPos      int    // 结束位置
}

// ValueKind 单元格值类型
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindString
	KindNumber
)

// Value 单元格的值：字符串、数字或空
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

// StringValue 创建字符串值
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue 创建数字值，display 为表格中显示的文本，可以为空
func NumberValue(n float64, display string) Value {
	return Value{Kind: KindNumber, Num: n, Str: display}
}

// EmptyValue 创建空值
func EmptyValue() Value {
	return Value{Kind: KindEmpty}
}

// IsEmpty 判断是否为空值
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// String 返回稳定的文本表示
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		if v.Str != "" {
			return v.Str
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Row 一行数据，列名到值的映射
type Row map[string]Value

// Dataset 表格数据集，行顺序与文件顺序一致
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Len 返回行数
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasColumn 判断数据集是否包含指定列
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EntryInfo 压缩包中一个条目的信息
type EntryInfo struct {
	Name         string
	RowIndex     int // 从 1 开始
	Size         int64
	Replacements int
	Missing      []string
}

// MergeReport 批量合并结果
type MergeReport struct {
	Entries      []EntryInfo
	Duplicates   map[string]int
	Replacements int
}

// EntryCount 返回压缩包条目数量
func (r *MergeReport) EntryCount() int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}
