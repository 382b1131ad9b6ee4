package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentVersion 当前配置文件版本
const CurrentVersion = "1.0"

// MergeConfig 批量合并配置
type MergeConfig struct {
	NameColumn          string `json:"name_column" yaml:"name_column"`
	OutputSuffix        string `json:"output_suffix" yaml:"output_suffix"`
	ArchiveName         string `json:"archive_name" yaml:"archive_name"`
	MissingColumnPolicy string `json:"missing_column_policy" yaml:"missing_column_policy"`
	DuplicateNamePolicy string `json:"duplicate_name_policy" yaml:"duplicate_name_policy"`
	Scope               string `json:"scope" yaml:"scope"`
	StampProperties     bool   `json:"stamp_properties" yaml:"stamp_properties"`
}

// PreviewConfig 预览配置
type PreviewConfig struct {
	DefaultFontFamily string `json:"default_font_family" yaml:"default_font_family"`
}

// StorageConfig 模板存储配置
type StorageConfig struct {
	Root string `json:"root" yaml:"root"`
}

// ProcessingConfig 处理配置
type ProcessingConfig struct {
	EnableDetailedLogging bool `json:"enable_detailed_logging" yaml:"enable_detailed_logging"`
	MaxConcurrentRows     int  `json:"max_concurrent_rows" yaml:"max_concurrent_rows"`
	// TimeoutSeconds 为 0 时不限制时间
	TimeoutSeconds *int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Config 表示完整的配置文件结构
type Config struct {
	ProjectName string           `json:"project_name" yaml:"project_name"`
	Version     string           `json:"version,omitempty" yaml:"version,omitempty"`
	Merge       MergeConfig      `json:"merge" yaml:"merge"`
	Preview     PreviewConfig    `json:"preview" yaml:"preview"`
	Storage     StorageConfig    `json:"storage" yaml:"storage"`
	Processing  ProcessingConfig `json:"processing" yaml:"processing"`
}

// ConfigManager 配置管理接口
type ConfigManager interface {
	LoadConfig(filePath string) (*Config, error)
	ValidateConfig(config *Config) error
	SaveConfig(config *Config, filePath string) error
	GenerateTemplate(templateType string) (*Config, error)
}

// configManager 配置管理器实现
type configManager struct{}

// NewConfigManager 创建新的配置管理器
func NewConfigManager() ConfigManager {
	return &configManager{}
}

// format 按扩展名确定配置文件格式
func format(filePath string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("配置文件必须是 JSON 或 YAML 格式，当前文件: %s", ext)
	}
}

// LoadConfig 从文件加载配置，未填写的项使用默认值
func (cm *configManager) LoadConfig(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, fmt.Errorf("配置文件路径不能为空")
	}

	// 检查文件是否存在
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", filePath)
	}

	kind, err := format(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if kind == "yaml" {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	SetDefaultValues(&config)

	if err := cm.ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// ValidateConfig 验证配置的有效性
func (cm *configManager) ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("配置不能为空")
	}

	if config.ProjectName == "" {
		return fmt.Errorf("项目名称不能为空")
	}

	if err := validateMergeConfig(&config.Merge); err != nil {
		return fmt.Errorf("合并配置无效: %w", err)
	}

	if err := validateProcessingConfig(&config.Processing); err != nil {
		return fmt.Errorf("处理配置无效: %w", err)
	}

	return nil
}

// validateMergeConfig 验证合并配置
func validateMergeConfig(mc *MergeConfig) error {
	if strings.TrimSpace(mc.NameColumn) == "" {
		return fmt.Errorf("命名列不能为空")
	}
	if strings.ContainsAny(mc.OutputSuffix, `/\`) {
		return fmt.Errorf("输出后缀不能包含路径分隔符: %s", mc.OutputSuffix)
	}

	switch mc.MissingColumnPolicy {
	case "abort", "fallback":
	default:
		return fmt.Errorf("未知的缺列处理方式: %s", mc.MissingColumnPolicy)
	}

	switch mc.DuplicateNamePolicy {
	case "keep", "suffix":
	default:
		return fmt.Errorf("未知的重名处理方式: %s", mc.DuplicateNamePolicy)
	}

	switch mc.Scope {
	case "body", "all":
	default:
		return fmt.Errorf("未知的处理范围: %s", mc.Scope)
	}

	return nil
}

// validateProcessingConfig 验证处理配置
func validateProcessingConfig(pc *ProcessingConfig) error {
	if pc.MaxConcurrentRows < 1 || pc.MaxConcurrentRows > 50 {
		return fmt.Errorf("最大并发行数必须在1-50之间")
	}

	if pc.TimeoutSeconds != nil && *pc.TimeoutSeconds < 0 {
		return fmt.Errorf("超时时间不能为负数")
	}

	return nil
}

// SetDefaultValues 为未填写的项设置默认值
func SetDefaultValues(config *Config) {
	if config.Version == "" {
		config.Version = CurrentVersion
	}

	if config.Merge.NameColumn == "" {
		config.Merge.NameColumn = "name"
	}
	if config.Merge.OutputSuffix == "" {
		config.Merge.OutputSuffix = "_personalized"
	}
	if config.Merge.ArchiveName == "" {
		config.Merge.ArchiveName = "personalized_documents.zip"
	}
	if config.Merge.MissingColumnPolicy == "" {
		config.Merge.MissingColumnPolicy = "abort"
	}
	if config.Merge.DuplicateNamePolicy == "" {
		config.Merge.DuplicateNamePolicy = "keep"
	}
	if config.Merge.Scope == "" {
		config.Merge.Scope = "body"
	}

	if config.Preview.DefaultFontFamily == "" {
		config.Preview.DefaultFontFamily = "Arial"
	}

	if config.Storage.Root == "" {
		config.Storage.Root = "."
	}

	if config.Processing.MaxConcurrentRows == 0 {
		config.Processing.MaxConcurrentRows = 1
	}
	if config.Processing.TimeoutSeconds == nil {
		timeout := 1800
		config.Processing.TimeoutSeconds = &timeout
	}
}

// Timeout 返回整个批次的超时秒数，0 表示不限制
func (c *Config) Timeout() int {
	if c.Processing.TimeoutSeconds == nil {
		return 0
	}
	return *c.Processing.TimeoutSeconds
}
