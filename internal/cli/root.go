package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/formats/markdown"
	"github.com/nerdneilsfield/go-doc-translator/internal/languages"
	"github.com/nerdneilsfield/go-doc-translator/internal/logger"
	"github.com/nerdneilsfield/go-doc-translator/internal/pipeline"
	"github.com/nerdneilsfield/go-doc-translator/internal/stats"
	"github.com/nerdneilsfield/go-doc-translator/pkg/auth"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/cache"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/docapi"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

var (
	// 全局标志
	cfgFile   string
	debugMode bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "doctranslator",
		Short: "DOCX/TXT 文档转换与翻译工具",
		Long: `doctranslator 把 DOCX 或 TXT 文档转换为带样式的 HTML，
经 Markdown 提交远端翻译服务，再把结果打包为 DOCX。

常用流程:
  doctranslator login --username alice
  doctranslator translate report.docx --from en --to hi -o report.hi.docx
  doctranslator serve --addr :8080`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认 $HOME/.doctranslator.yaml 或 ./.doctranslator.yaml）")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")

	rootCmd.AddCommand(
		newExtractCommand(),
		newSanitizeCommand(),
		newToMarkdownCommand(),
		newToHTMLCommand(),
		newToDocxCommand(),
		newTranslateCommand(),
		newLanguagesCommand(),
		newStatsCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newServeCommand(),
		newVersionCommand(version, commit, buildDate),
	)

	return rootCmd
}

// env 单次命令执行所需的依赖
type env struct {
	cfg       *config.Config
	log       *zap.Logger
	languages *languages.Table
	stats     *stats.Database
}

// loadEnv 加载配置、日志与语言表
func loadEnv() (*env, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Debug = true
	}

	table := languages.Default()
	if cfg.Languages.File != "" {
		table, err = languages.LoadFile(cfg.Languages.File)
		if err != nil {
			return nil, err
		}
	}

	e := &env{cfg: cfg, log: logger.NewLogger(cfg.Debug), languages: table}
	if cfg.Stats.Enabled {
		if e.stats, err = stats.NewDatabase(cfg.Stats.File, e.log); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.stats != nil {
		if err := e.stats.Save(); err != nil {
			e.log.Warn("统计保存失败", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}

// tokenStore 固定令牌优先，否则使用令牌文件
func (e *env) tokenStore() *auth.TokenStore {
	if e.cfg.Auth.Token != "" {
		return auth.NewStaticTokenStore(e.cfg.Auth.Token)
	}
	return auth.NewTokenStore(e.cfg.Auth.TokenFile)
}

// translator 按配置选择翻译后端
func (e *env) translator() (providers.Translator, error) {
	registry := providers.NewRegistry()

	docCfg := docapi.DefaultConfig()
	docCfg.APIEndpoint = e.cfg.API.BaseURL
	docCfg.Timeout = e.cfg.API.Timeout
	if err := registry.Register(config.ProviderDocAPI, docapi.New(docCfg, e.tokenStore())); err != nil {
		return nil, err
	}

	aiCfg := openai.DefaultConfig()
	aiCfg.APIKey = e.cfg.OpenAI.APIKey
	aiCfg.APIEndpoint = e.cfg.OpenAI.BaseURL
	aiCfg.Model = e.cfg.OpenAI.Model
	aiCfg.Temperature = e.cfg.OpenAI.Temperature
	aiCfg.Timeout = e.cfg.API.Timeout
	if err := registry.Register(config.ProviderOpenAI, openai.New(aiCfg, e.languages.Name)); err != nil {
		return nil, err
	}

	return registry.Get(e.cfg.Translator.Provider)
}

// pipeline 构建处理流程；withTranslator 为 false 时不创建翻译后端
func (e *env) pipeline(withTranslator bool) (*pipeline.Pipeline, error) {
	var tr providers.Translator
	if withTranslator {
		var err error
		if tr, err = e.translator(); err != nil {
			return nil, err
		}
	}

	var bridgeOpts []markdown.Option
	if e.cfg.Markdown.Format {
		bridgeOpts = append(bridgeOpts, markdown.WithFormatting())
	}
	if e.cfg.Markdown.RawHTML {
		bridgeOpts = append(bridgeOpts, markdown.WithRawHTML())
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(e.log),
		pipeline.WithLanguages(e.languages),
		pipeline.WithBridge(markdown.NewBridge(bridgeOpts...)),
		pipeline.WithDownloadName(e.cfg.Download.FileName),
		pipeline.WithStats(e.stats),
		pipeline.WithRetry(e.retryConfig()),
	}
	if withTranslator && e.cfg.Cache.Enabled {
		c, err := cache.New(e.cfg.Cache.Dir, e.cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithCache(c))
	}

	return pipeline.New(tr, opts...), nil
}

func (e *env) retryConfig() retry.RetryConfig {
	cfg := retry.DefaultRetryConfig()
	cfg.MaxRetries = e.cfg.API.MaxRetries
	if e.cfg.API.RetryDelay > 0 {
		cfg.InitialDelay = e.cfg.API.RetryDelay
	}
	return cfg
}

// translateBudget 整次翻译的期限：api.timeout 只约束单次请求，重试与退避另计
func (e *env) translateBudget() time.Duration {
	return e.retryConfig().Budget(e.cfg.API.Timeout)
}
