package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/allanpk716/persodocs/internal/config"
	"github.com/allanpk716/persodocs/internal/matcher"
	"github.com/allanpk716/persodocs/internal/preview"
	"github.com/allanpk716/persodocs/internal/processor"
	"github.com/allanpk716/persodocs/internal/service"
	"github.com/allanpk716/persodocs/internal/storage"
	"github.com/allanpk716/persodocs/internal/tabular"
)

// MergeOptions 把配置转换为批量合并选项
func MergeOptions(cfg *config.Config, templateName string) processor.Options {
	return processor.Options{
		NameColumn:          cfg.Merge.NameColumn,
		OutputSuffix:        cfg.Merge.OutputSuffix,
		Extension:           filepath.Ext(templateName),
		MissingColumnPolicy: processor.MissingColumnPolicy(cfg.Merge.MissingColumnPolicy),
		DuplicateNamePolicy: processor.DuplicateNamePolicy(cfg.Merge.DuplicateNamePolicy),
		Scope:               processor.Scope(cfg.Merge.Scope),
		StampProperties:     cfg.Merge.StampProperties,
		TemplateName:        filepath.Base(templateName),
		MaxConcurrentRows:   cfg.Processing.MaxConcurrentRows,
		DetailedLogging:     cfg.Processing.EnableDetailedLogging,
	}
}

// ApplyOverrides 命令行参数覆盖配置文件中的值
func ApplyOverrides(cfg *config.Config, args *CommandLineArgs) {
	if args.NameColumn != "" {
		cfg.Merge.NameColumn = args.NameColumn
	}
	if args.Workers > 0 {
		cfg.Processing.MaxConcurrentRows = args.Workers
	}
	if args.Verbose {
		cfg.Processing.EnableDetailedLogging = true
	}
}

// LoadConfig 加载配置文件，路径为空时使用默认配置
func LoadConfig(manager config.ConfigManager, args *CommandLineArgs) (*config.Config, error) {
	var cfg *config.Config
	if args.ConfigFile == "" {
		cfg = &config.Config{ProjectName: AppName}
		config.SetDefaultValues(cfg)
	} else {
		loaded, err := manager.LoadConfig(args.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	ApplyOverrides(cfg, args)
	if err := manager.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("参数与配置冲突: %w", err)
	}
	return cfg, nil
}

// ExecuteInitConfig 生成配置模板并保存，已有文件会先备份
func ExecuteInitConfig(manager config.ConfigManager, templateType, filePath string) error {
	cfg, err := manager.GenerateTemplate(templateType)
	if err != nil {
		return err
	}
	if err := manager.SaveConfig(cfg, filePath); err != nil {
		return err
	}
	log.Printf("配置模板已生成: %s (%s)", filePath, templateType)
	return nil
}

// templateLocation 模板为绝对路径时以其所在目录作为存储根目录
func templateLocation(root, template string) (string, string) {
	if filepath.IsAbs(template) {
		return filepath.Dir(template), filepath.Base(template)
	}
	return root, filepath.ToSlash(template)
}

// NewService 按配置组装模板服务
func NewService(cfg *config.Config, templateKey, storageRoot string) (*service.TemplateService, error) {
	store, err := storage.NewFileStorage(storageRoot)
	if err != nil {
		return nil, err
	}

	merger := processor.NewMergeProcessor(matcher.NewPlaceholderMatcher(), MergeOptions(cfg, templateKey))
	return service.NewTemplateService(
		store,
		merger,
		tabular.NewDatasetReader(),
		preview.NewRenderer(cfg.Preview.DefaultFontFamily),
		cfg.Merge.ArchiveName,
	), nil
}

// ExecuteProcessing 执行处理逻辑
func ExecuteProcessing(ctx context.Context, cfg *config.Config, args *CommandLineArgs, stdout io.Writer) error {
	if args.Mode() == ModeDelete {
		root, key := templateLocation(cfg.Storage.Root, args.DeleteKey)
		svc, err := NewService(cfg, key, root)
		if err != nil {
			return err
		}
		return svc.DeleteTemplate(ctx, key)
	}

	root, key := templateLocation(cfg.Storage.Root, args.TemplateFile)
	svc, err := NewService(cfg, key, root)
	if err != nil {
		return err
	}

	switch args.Mode() {
	case ModeSave:
		return ExecuteSave(ctx, svc, args.SaveFile, key)
	case ModePreview:
		return ExecutePreview(ctx, svc, key, args.OutputFile)
	case ModeInspect:
		return ExecuteInspect(ctx, svc, key, args.DataFile, stdout)
	default:
		return ExecuteMerge(ctx, svc, key, args.DataFile, args.OutputFile)
	}
}

// ExecuteSave 校验并保存模板
func ExecuteSave(ctx context.Context, svc *service.TemplateService, sourceFile, key string) error {
	data, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("读取模板文件失败: %w", err)
	}
	return svc.SaveTemplate(ctx, key, data)
}

// ExecuteMerge 生成压缩包，未指定输出路径时使用配置中的压缩包名
func ExecuteMerge(ctx context.Context, svc *service.TemplateService, key, dataFile, outputFile string) error {
	file, err := os.Open(dataFile)
	if err != nil {
		return fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer file.Close()

	download, err := svc.Generate(ctx, key, file, filepath.Base(dataFile))
	if err != nil {
		return err
	}

	if outputFile == "" {
		outputFile = download.Filename
	}
	if err := WriteFileAtomic(outputFile, download.Data); err != nil {
		return err
	}

	for _, entry := range download.Report.Entries {
		if len(entry.Missing) > 0 {
			log.Printf("%s: 数据中没有以下列，占位符保持原样: %s", entry.Name, strings.Join(entry.Missing, ", "))
		}
	}
	log.Printf("已生成 %s (%d 个文档, %d 字节)", outputFile, download.Report.EntryCount(), len(download.Data))
	return nil
}

// ExecutePreview 把模板预览写成HTML页面
func ExecutePreview(ctx context.Context, svc *service.TemplateService, key, outputFile string) error {
	fragments, err := svc.Preview(ctx, key)
	if err != nil {
		return err
	}

	page, err := RenderPreviewPage(key, fragments)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(outputFile, page); err != nil {
		return err
	}

	log.Printf("预览已生成: %s (%d 个段落)", outputFile, len(fragments))
	return nil
}

// ExecuteInspect 打印模板中的占位符，指定数据文件时同时检查列名
func ExecuteInspect(ctx context.Context, svc *service.TemplateService, key, dataFile string, stdout io.Writer) error {
	var columns []string
	if dataFile != "" {
		file, err := os.Open(dataFile)
		if err != nil {
			return fmt.Errorf("打开数据文件失败: %w", err)
		}
		defer file.Close()

		dataset, err := tabular.NewDatasetReader().ReadDataset(ctx, file, filepath.Base(dataFile))
		if err != nil {
			return err
		}
		columns = dataset.Columns
	}

	report, err := svc.Inspect(ctx, key, columns)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "模板 %s 中共有 %d 个占位符:\n", key, len(report.Placeholders))
	for _, name := range report.Placeholders {
		fmt.Fprintf(stdout, "  %s\n", matcher.FormatPlaceholder(name))
	}

	if len(report.Split) > 0 {
		fmt.Fprintln(stdout, "以下占位符被格式拆开，合并时不会被替换:")
		for _, name := range report.Split {
			fmt.Fprintf(stdout, "  %s\n", matcher.FormatPlaceholder(name))
		}
	}

	if len(report.Unmatched) > 0 {
		fmt.Fprintln(stdout, "数据中没有对应列的占位符:")
		for _, s := range report.Unmatched {
			if len(s.Columns) > 0 {
				fmt.Fprintf(stdout, "  %s (是否为: %s)\n", matcher.FormatPlaceholder(s.Placeholder), strings.Join(s.Columns, ", "))
			} else {
				fmt.Fprintf(stdout, "  %s\n", matcher.FormatPlaceholder(s.Placeholder))
			}
		}
	}
	return nil
}

// WriteFileAtomic 先写临时文件再重命名，失败时不留下不完整的输出
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭输出文件失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("保存输出文件失败: %w", err)
	}
	return nil
}
