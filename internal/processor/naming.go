package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/allanpk716/persodocs/internal/domain"
)

// MissingColumnPolicy 行中缺少命名列时的处理方式
type MissingColumnPolicy string

const (
	// MissingColumnAbort 中止整个批次
	MissingColumnAbort MissingColumnPolicy = "abort"
	// MissingColumnFallback 使用 row_<行号> 作为文件名
	MissingColumnFallback MissingColumnPolicy = "fallback"
)

// DuplicateNamePolicy 文件名重复时的处理方式
type DuplicateNamePolicy string

const (
	// DuplicateKeep 保留重复的条目名，压缩包中会出现同名条目
	DuplicateKeep DuplicateNamePolicy = "keep"
	// DuplicateSuffix 第二次及以后出现的同名条目追加 _<序号>
	DuplicateSuffix DuplicateNamePolicy = "suffix"
)

var pathSeparatorReplacer = strings.NewReplacer("/", "_", "\\", "_")

// entryNamer 计算每一行在压缩包中的条目名
type entryNamer struct {
	column    string
	suffix    string
	extension string
	missing   MissingColumnPolicy
	duplicate DuplicateNamePolicy
	seen      map[string]int
}

func newEntryNamer(opts Options) *entryNamer {
	return &entryNamer{
		column:    opts.NameColumn,
		suffix:    opts.OutputSuffix,
		extension: opts.Extension,
		missing:   opts.MissingColumnPolicy,
		duplicate: opts.DuplicateNamePolicy,
		seen:      make(map[string]int),
	}
}

// name rowIndex 从 1 开始
func (n *entryNamer) name(row domain.Row, rowIndex int) (string, error) {
	var base string
	value, ok := row[n.column]
	switch {
	case ok:
		base = pathSeparatorReplacer.Replace(value.String())
	case n.missing == MissingColumnFallback:
		base = "row_" + strconv.Itoa(rowIndex)
	default:
		return "", &domain.MissingColumnError{Column: n.column, Row: rowIndex}
	}

	name := base + n.suffix + n.extension
	n.seen[name]++
	if count := n.seen[name]; count > 1 && n.duplicate == DuplicateSuffix {
		name = fmt.Sprintf("%s%s_%d%s", base, n.suffix, count, n.extension)
	}
	return name, nil
}

// duplicates 返回出现不止一次的名称及次数
func (n *entryNamer) duplicates() map[string]int {
	dups := make(map[string]int)
	for name, count := range n.seen {
		if count > 1 {
			dups[name] = count
		}
	}
	return dups
}
