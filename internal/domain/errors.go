package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset 数据集没有任何数据行
	ErrEmptyDataset = errors.New("数据集为空")
	// ErrTemplateNotFound 模板不存在
	ErrTemplateNotFound = errors.New("模板不存在")
)

// FormatKind 无法解析的输入类型
type FormatKind string

const (
	FormatDocument    FormatKind = "document"
	FormatSpreadsheet FormatKind = "spreadsheet"
)

// FormatError 输入字节不是可解析的文档或表格
type FormatError struct {
	Kind FormatKind
	Name string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("无法解析%s %s: %v", e.kindLabel(), e.Name, e.Err)
	}
	return fmt.Sprintf("无法解析%s: %v", e.kindLabel(), e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) kindLabel() string {
	if e.Kind == FormatSpreadsheet {
		return "表格"
	}
	return "文档"
}

// MissingColumnError 行中缺少命名列
type MissingColumnError struct {
	Column string
	Row    int
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("第 %d 行缺少列 %q", e.Row, e.Column)
}

// StyleError 渲染时遇到格式错误的样式属性
type StyleError struct {
	Attribute string
	Value     string
}

func (e *StyleError) Error() string {
	return fmt.Sprintf("样式属性 %s 的值无效: %q", e.Attribute, e.Value)
}

// RowError 单行处理失败，整个批次随之中止
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("处理第 %d 行失败: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// SaveError 保存模板失败
type SaveError struct {
	Key string
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("保存模板 %s 失败: %v", e.Key, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// IsFormatError 判断错误链中是否包含 FormatError
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsMissingColumn 判断错误链中是否包含 MissingColumnError
func IsMissingColumn(err error) bool {
	var me *MissingColumnError
	return errors.As(err, &me)
}
