package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/allanpk716/persodocs/internal/cmd"
	"github.com/allanpk716/persodocs/internal/config"
)

func main() {
	// 解析命令行参数
	args, err := cmd.ParseCommandLineArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	// 处理版本和帮助信息
	if args.ShowVersion {
		fmt.Printf("%s v%s\n", cmd.AppName, cmd.AppVersion)
		return
	}

	if args.ShowHelp {
		cmd.ShowUsage(os.Stdout)
		return
	}

	// 设置日志级别
	if args.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	log.Printf("启动 %s v%s", cmd.AppName, cmd.AppVersion)

	// 验证参数
	if err := cmd.ValidateArgs(args); err != nil {
		log.Fatalf("参数验证失败: %v", err)
	}

	configManager := config.NewConfigManager()
	if args.Mode() == cmd.ModeInit {
		if err := cmd.ExecuteInitConfig(configManager, args.InitConfig, args.ConfigFile); err != nil {
			log.Fatalf("生成配置模板失败: %v", err)
		}
		return
	}

	// 加载配置文件
	cfg, err := cmd.LoadConfig(configManager, args)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	log.Printf("配置: 项目 %s, 命名列 %s, 并行行数 %d",
		cfg.ProjectName, cfg.Merge.NameColumn, cfg.Processing.MaxConcurrentRows)

	// 创建上下文
	ctx := context.Background()
	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	if err := cmd.ExecuteProcessing(ctx, cfg, args, os.Stdout); err != nil {
		log.Fatalf("处理失败: %v", err)
	}

	log.Println("处理完成")
}
