package cmd

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	// AppName 程序名称
	AppName = "persodocs"
	// AppVersion 程序版本
	AppVersion = "1.0.0"
)

// Mode 运行模式
type Mode string

const (
	ModeMerge   Mode = "merge"
	ModePreview Mode = "preview"
	ModeInspect Mode = "inspect"
	ModeSave    Mode = "save"
	ModeDelete  Mode = "delete"
	ModeInit    Mode = "init-config"
)

// DefaultConfigFile -init-config 未指定 -config 时写入的文件
const DefaultConfigFile = "config.json"

// CommandLineArgs 命令行参数结构
type CommandLineArgs struct {
	ConfigFile   string
	TemplateFile string
	DataFile     string
	OutputFile   string
	NameColumn   string
	Workers      int
	Preview      bool
	Inspect      bool
	SaveFile     string
	DeleteKey    string
	InitConfig   string
	ShowVersion  bool
	ShowHelp     bool
	Verbose      bool
}

func newFlagSet(args *CommandLineArgs, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&args.ConfigFile, "config", "", "配置文件路径（JSON 或 YAML），为空时使用默认配置")
	fs.StringVar(&args.TemplateFile, "template", "", "DOCX 模板，相对于存储目录的键或文件路径")
	fs.StringVar(&args.DataFile, "data", "", "数据文件路径（XLSX 或 CSV）")
	fs.StringVar(&args.OutputFile, "output", "", "输出文件路径")
	fs.StringVar(&args.NameColumn, "name-column", "", "用于命名输出文件的列，覆盖配置文件")
	fs.IntVar(&args.Workers, "workers", 0, "并行处理的行数，覆盖配置文件")
	fs.BoolVar(&args.Preview, "preview", false, "把模板渲染为HTML预览")
	fs.BoolVar(&args.Inspect, "inspect", false, "列出模板中的占位符")
	fs.StringVar(&args.SaveFile, "save", "", "校验并保存模板到存储目录，-template 为保存的键")
	fs.StringVar(&args.DeleteKey, "delete", "", "从存储目录删除模板")
	fs.StringVar(&args.InitConfig, "init-config", "", "生成配置文件模板（basic 或 advanced），写入 -config 指定的路径")
	fs.BoolVar(&args.ShowVersion, "version", false, "显示版本信息")
	fs.BoolVar(&args.ShowHelp, "help", false, "显示帮助信息")
	fs.BoolVar(&args.Verbose, "verbose", false, "详细输出")
	return fs
}

// ParseCommandLineArgs 解析命令行参数，argv 不包含程序名
func ParseCommandLineArgs(argv []string, output io.Writer) (*CommandLineArgs, error) {
	args := &CommandLineArgs{}
	if err := newFlagSet(args, output).Parse(argv); err != nil {
		return nil, err
	}
	return args, nil
}

// ShowUsage 打印使用说明
func ShowUsage(w io.Writer) {
	fmt.Fprintf(w, "%s v%s - 按表格数据批量生成个性化 Word 文档\n\n", AppName, AppVersion)
	fmt.Fprintln(w, "用法:")
	fmt.Fprintf(w, "  %s -template letter.docx -data people.xlsx [-output out.zip]\n", AppName)
	fmt.Fprintf(w, "  %s -template letter.docx -preview [-output preview.html]\n", AppName)
	fmt.Fprintf(w, "  %s -template letter.docx -inspect [-data people.xlsx]\n", AppName)
	fmt.Fprintf(w, "  %s -save ./letter.docx -template letters/letter.docx\n", AppName)
	fmt.Fprintf(w, "  %s -delete letters/letter.docx\n", AppName)
	fmt.Fprintf(w, "  %s -init-config basic [-config config.yaml]\n\n", AppName)
	fmt.Fprintln(w, "参数:")

	var args CommandLineArgs
	fs := newFlagSet(&args, w)
	fs.PrintDefaults()
}

// Mode 返回运行模式
func (a *CommandLineArgs) Mode() Mode {
	switch {
	case a.InitConfig != "":
		return ModeInit
	case a.DeleteKey != "":
		return ModeDelete
	case a.SaveFile != "":
		return ModeSave
	case a.Preview:
		return ModePreview
	case a.Inspect:
		return ModeInspect
	default:
		return ModeMerge
	}
}

// ValidateArgs 验证命令行参数
func ValidateArgs(args *CommandLineArgs) error {
	modes := 0
	for _, set := range []bool{args.Preview, args.Inspect, args.SaveFile != "", args.DeleteKey != "", args.InitConfig != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("-preview、-inspect、-save、-delete 和 -init-config 不能同时使用")
	}

	if args.Workers < 0 {
		return fmt.Errorf("并行行数不能为负数")
	}

	switch args.Mode() {
	case ModeInit:
		if args.ConfigFile == "" {
			args.ConfigFile = DefaultConfigFile
		}
		return nil
	case ModeDelete:
		return nil
	case ModeSave:
		if args.TemplateFile == "" {
			args.TemplateFile = filepath.Base(args.SaveFile)
		}
		return nil
	case ModeMerge:
		if args.TemplateFile == "" {
			return fmt.Errorf("必须指定模板文件")
		}
		if args.DataFile == "" {
			return fmt.Errorf("合并模式下必须指定数据文件")
		}
		return nil
	case ModePreview:
		if args.TemplateFile == "" {
			return fmt.Errorf("必须指定模板文件")
		}
		if args.OutputFile == "" {
			args.OutputFile = GenerateOutputFileName(args.TemplateFile)
		}
		return nil
	default:
		if args.TemplateFile == "" {
			return fmt.Errorf("必须指定模板文件")
		}
		return nil
	}
}

// GenerateOutputFileName 生成预览文件名
func GenerateOutputFileName(templateFile string) string {
	ext := filepath.Ext(templateFile)
	base := strings.TrimSuffix(templateFile, ext)
	return base + "_preview.html"
}
