package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// Cfg 全局配置，进程启动时加载一次
var Cfg Config

type Config struct {
	MySQL   MySQLConfig   `yaml:"mysql"`
	OSS     OSSConfig     `yaml:"oss"`
	Milvus  MilvusConfig  `yaml:"milvus"`
	MQ      MQConfig      `yaml:"mq"`
	Model   ModelConfig   `yaml:"model"`
	JWT     JWTConfig     `yaml:"jwt"`
	MCP     MCPConfig     `yaml:"mcp"`
	Crawler CrawlerConfig `yaml:"crawler"`
	Worker  WorkerConfig  `yaml:"worker"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type OSSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	BucketName      string `yaml:"bucket_name"`
	Host            string `yaml:"host"`
}

type MilvusConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

type MQConfig struct {
	NameServer []string `yaml:"name_server"`
}

type ModelConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key"`
}

type MCPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type CrawlerConfig struct {
	// 单个页面抓取超时（秒）
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type WorkerConfig struct {
	// 同步知识多久未刷新视为过期（小时）
	OutdatedSyncHours int `yaml:"outdated_sync_hours"`

	// 过期扫描单批处理的知识条数
	OutdatedSyncBatchSize int `yaml:"outdated_sync_batch_size"`

	// 过期扫描调度间隔（分钟）
	ScanIntervalMinutes int `yaml:"scan_interval_minutes"`
}

func init() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// 显式指定的配置文件必须存在；默认路径缺失时带默认值启动，
		// 一次性工具和测试二进制不依赖配置文件
		if os.Getenv("CONFIG_PATH") != "" || !os.IsNotExist(err) {
			panic(fmt.Sprintf("failed to read config file %s: %v", path, err))
		}
	} else if err := yaml.Unmarshal(data, &Cfg); err != nil {
		panic(fmt.Sprintf("failed to parse config file %s: %v", path, err))
	}

	applyDefaults(&Cfg)
}

func applyDefaults(cfg *Config) {
	if len(cfg.MQ.NameServer) == 0 {
		cfg.MQ.NameServer = []string{"127.0.0.1:9876"}
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if cfg.Crawler.TimeoutSeconds <= 0 {
		cfg.Crawler.TimeoutSeconds = 30
	}
	if cfg.Worker.OutdatedSyncHours <= 0 {
		cfg.Worker.OutdatedSyncHours = 8
	}
	if cfg.Worker.OutdatedSyncBatchSize <= 0 {
		cfg.Worker.OutdatedSyncBatchSize = 1000
	}
	if cfg.Worker.ScanIntervalMinutes <= 0 {
		cfg.Worker.ScanIntervalMinutes = 60
	}
}
