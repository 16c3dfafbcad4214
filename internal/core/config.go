package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/bilispy/internal/crawlers"
	"github.com/RecoveryAshes/bilispy/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Barrage BarrageConfig `mapstructure:"barrage"`
	Run     RunConfig     `mapstructure:"run"`
	Pacing  PacingConfig  `mapstructure:"pacing"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SearchConfig 搜索页与分页配置
type SearchConfig struct {
	Keyword         string        `mapstructure:"keyword"`
	URL             string        `mapstructure:"url"`
	Headless        bool          `mapstructure:"headless"`
	BrowserBin      string        `mapstructure:"browser_bin"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	LoadTimeout     time.Duration `mapstructure:"load_timeout"`
	AdvanceTimeout  time.Duration `mapstructure:"advance_timeout"`
	NextPageTimeout time.Duration `mapstructure:"next_page_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPages        int           `mapstructure:"max_pages"`
}

// BarrageConfig 弹幕抓取配置
type BarrageConfig struct {
	CommentBaseURL string        `mapstructure:"comment_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	Burst          int           `mapstructure:"burst"`
}

// RunConfig 单次运行配置
type RunConfig struct {
	MaxVideos    int    `mapstructure:"max_videos"` // 成功处理的视频数上限, 0 表示不限制
	Workers      int    `mapstructure:"workers"`
	OutputFile   string `mapstructure:"output_file"`
	ShowProgress bool   `mapstructure:"show_progress"`
}

// PacingConfig 视频之间的随机等待区间
type PacingConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// BatchConfig 关键词批量配置
type BatchConfig struct {
	Delay           time.Duration `mapstructure:"delay"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	ReportsDir string `mapstructure:"reports_dir"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // 为空时不启动 /metrics
}

// LoadConfig 加载配置文件, 找不到配置文件时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bilispy"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("search.keyword", "大模型")
	v.SetDefault("search.url", crawlers.DefaultSearchURL)
	v.SetDefault("search.headless", true)
	v.SetDefault("search.settle_delay", 5*time.Second)
	v.SetDefault("search.load_timeout", 15*time.Second)
	v.SetDefault("search.advance_timeout", 15*time.Second)
	v.SetDefault("search.next_page_timeout", 10*time.Second)
	v.SetDefault("search.poll_interval", crawlers.DefaultPollInterval)
	v.SetDefault("search.max_pages", 0)

	v.SetDefault("barrage.comment_base_url", crawlers.DefaultCommentBaseURL)
	v.SetDefault("barrage.request_timeout", 30*time.Second)
	v.SetDefault("barrage.rate_limit", 2.0)
	v.SetDefault("barrage.burst", 1)

	v.SetDefault("run.max_videos", 360)
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.output_file", "barrage.json")
	v.SetDefault("run.show_progress", true)

	v.SetDefault("pacing.min_delay", 6*time.Second)
	v.SetDefault("pacing.max_delay", 12*time.Second)

	v.SetDefault("batch.delay", 30*time.Second)
	v.SetDefault("batch.continue_on_error", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("output.reports_dir", "reports")
	v.SetDefault("metrics.addr", "")
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if c.Run.MaxVideos < 0 {
		return fmt.Errorf("run.max_videos 不能为负数: %d", c.Run.MaxVideos)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers 至少为1: %d", c.Run.Workers)
	}
	if c.Run.OutputFile == "" {
		return fmt.Errorf("run.output_file 不能为空")
	}
	if c.Pacing.MinDelay < 0 || c.Pacing.MaxDelay < c.Pacing.MinDelay {
		return fmt.Errorf("pacing 区间无效: [%v, %v]", c.Pacing.MinDelay, c.Pacing.MaxDelay)
	}
	if c.Search.MaxPages < 0 {
		return fmt.Errorf("search.max_pages 不能为负数: %d", c.Search.MaxPages)
	}
	if c.Barrage.RateLimit < 0 {
		return fmt.Errorf("barrage.rate_limit 不能为负数: %v", c.Barrage.RateLimit)
	}
	return nil
}

// PaginatorConfig 转换为分页器配置
func (c *Config) PaginatorConfig() crawlers.PaginatorConfig {
	return crawlers.PaginatorConfig{
		SearchURL:       c.Search.URL,
		SettleDelay:     c.Search.SettleDelay,
		LoadTimeout:     c.Search.LoadTimeout,
		AdvanceTimeout:  c.Search.AdvanceTimeout,
		NextPageTimeout: c.Search.NextPageTimeout,
		PollInterval:    c.Search.PollInterval,
		MaxPages:        c.Search.MaxPages,
	}
}

// PageClientConfig 转换为HTTP客户端配置
func (c *Config) PageClientConfig() crawlers.PageClientConfig {
	return crawlers.PageClientConfig{
		RequestTimeout: c.Barrage.RequestTimeout,
		RateLimit:      c.Barrage.RateLimit,
		Burst:          c.Barrage.Burst,
	}
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}
