package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SaveConfig 保存配置到文件，按扩展名选择 JSON 或 YAML
func (cm *configManager) SaveConfig(config *Config, filePath string) error {
	if config == nil {
		return fmt.Errorf("配置不能为空")
	}

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	kind, err := format(filePath)
	if err != nil {
		return err
	}

	var data []byte
	if kind == "yaml" {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	// 确保目录存在
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	if err := createBackup(filePath); err != nil {
		fmt.Printf("创建备份失败: %v\n", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// createBackup 覆盖已有配置前创建备份
func createBackup(filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil // 文件不存在，无需备份
	}

	dir := filepath.Dir(filePath)
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_backup_%s%s", name, timestamp, ext))

	src, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取原文件失败: %w", err)
	}

	if err := os.WriteFile(backupPath, src, 0644); err != nil {
		return fmt.Errorf("写入备份文件失败: %w", err)
	}

	fmt.Printf("配置备份已创建: %s\n", backupPath)
	return nil
}

// GenerateTemplate 生成配置模板
func (cm *configManager) GenerateTemplate(templateType string) (*Config, error) {
	switch templateType {
	case "basic":
		return generateBasicTemplate(), nil
	case "advanced":
		return generateAdvancedTemplate(), nil
	default:
		return nil, fmt.Errorf("未知的模板类型: %s", templateType)
	}
}

// generateBasicTemplate 生成基础模板
func generateBasicTemplate() *Config {
	config := &Config{ProjectName: "示例项目"}
	SetDefaultValues(config)
	return config
}

// generateAdvancedTemplate 生成高级模板
func generateAdvancedTemplate() *Config {
	config := generateBasicTemplate()

	// 启用更多功能
	config.Merge.DuplicateNamePolicy = "suffix"
	config.Merge.Scope = "all"
	config.Merge.StampProperties = true
	config.Processing.EnableDetailedLogging = true
	config.Processing.MaxConcurrentRows = 4

	return config
}
