package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/internal/pipeline"
	"github.com/nerdneilsfield/go-doc-translator/internal/server"
	"github.com/nerdneilsfield/go-doc-translator/internal/stats"
	"github.com/nerdneilsfield/go-doc-translator/pkg/auth"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/docapi"
)

// newExtractCommand 提取 DOCX/TXT 为 HTML 与样式表
func newExtractCommand() *cobra.Command {
	var outFile, stylesFile string

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "把 DOCX 或 TXT 文档转换为 HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(false)
			if err != nil {
				return err
			}

			bundle, err := loadFile(cmd.Context(), p, args[0])
			if err != nil {
				return err
			}

			html := bundle.HTML
			if stylesFile != "" {
				if err := writeOutput(cmd, stylesFile, []byte(bundle.StyleSheet)); err != nil {
					return err
				}
			} else if bundle.StyleSheet != "" {
				html = "<style>" + bundle.StyleSheet + "</style>" + html
			}
			if err := writeOutput(cmd, outFile, []byte(html)); err != nil {
				return err
			}

			printBundleSummary(cmd.ErrOrStderr(), bundle)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "HTML 输出文件（默认标准输出）")
	cmd.Flags().StringVar(&stylesFile, "styles", "", "单独写出 CSS 样式表的文件")
	return cmd
}

// newSanitizeCommand 清洗 HTML
func newSanitizeCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "sanitize [file|-]",
		Short: "按白名单清洗 HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(false)
			if err != nil {
				return err
			}

			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return writeOutput(cmd, outFile, []byte(p.Sanitize(string(in))))
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "输出文件（默认标准输出）")
	return cmd
}

// newToMarkdownCommand HTML 转 Markdown
func newToMarkdownCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "to-markdown [file|-]",
		Short: "把 HTML 转换为 Markdown（丢弃内嵌图片）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(false)
			if err != nil {
				return err
			}

			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			md, err := p.Markdown(string(in))
			if err != nil {
				return err
			}
			return writeOutput(cmd, outFile, []byte(md+"\n"))
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "输出文件（默认标准输出）")
	return cmd
}

// newToHTMLCommand Markdown 转 HTML
func newToHTMLCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "to-html [file|-]",
		Short: "把 Markdown 转换为清洗后的 HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(false)
			if err != nil {
				return err
			}

			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			html, err := p.HTML(string(in))
			if err != nil {
				return err
			}
			return writeOutput(cmd, outFile, []byte(html))
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "输出文件（默认标准输出）")
	return cmd
}

// newToDocxCommand HTML 打包为 DOCX
func newToDocxCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "to-docx [file|-]",
		Short: "把 HTML 打包为 DOCX 文档",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(false)
			if err != nil {
				return err
			}

			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			dl, err := p.Download(cmd.Context(), string(in), outFile)
			if err != nil {
				return err
			}

			target := outFile
			if target == "" {
				target = dl.FileName
			} else {
				target = filepath.Join(filepath.Dir(outFile), dl.FileName)
			}
			if err := writeOutput(cmd, target, dl.Data); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "已写出 %s (%d 字节)", target, len(dl.Data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "DOCX 输出文件（默认使用配置中的文件名）")
	return cmd
}

// newTranslateCommand 完整流程：导入、翻译、导出
func newTranslateCommand() *cobra.Command {
	var fromLang, toLang, outFile string

	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "翻译 DOCX 或 TXT 文档",
		Long: `读取 DOCX 或 TXT 文档，经 Markdown 提交翻译服务，并按输出文件扩展名写出结果：
  .docx（默认） 打包为 DOCX
  .md           Markdown
  .html/.htm    带样式表的 HTML`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(true)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			bundle, err := loadFile(ctx, p, args[0])
			if err != nil {
				return err
			}

			if budget := e.translateBudget(); budget > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, budget)
				defer cancel()
			}

			translated, err := p.Translate(ctx, bundle, fromLang, toLang)
			if err != nil {
				return err
			}

			if outFile == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				outFile = base + "." + strings.ToLower(strings.TrimSpace(toLang)) + ".docx"
			}

			var data []byte
			switch strings.ToLower(filepath.Ext(outFile)) {
			case ".md", ".markdown":
				md, err := p.Markdown(translated.HTML)
				if err != nil {
					return err
				}
				data = []byte(md + "\n")
			case ".html", ".htm":
				html := translated.HTML
				if translated.StyleSheet != "" {
					html = "<style>" + translated.StyleSheet + "</style>" + html
				}
				data = []byte(html)
			default:
				dl, err := p.Download(ctx, translated.HTML, outFile)
				if err != nil {
					return err
				}
				outFile = filepath.Join(filepath.Dir(outFile), dl.FileName)
				data = dl.Data
			}

			if err := writeOutput(cmd, outFile, data); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "翻译完成: %s -> %s", args[0], outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fromLang, "from", "f", "", "源语言代码或名称")
	cmd.Flags().StringVarP(&toLang, "to", "t", "", "目标语言代码或名称")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "输出文件（扩展名决定格式，默认 <name>.<to>.docx）")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// newLanguagesCommand 列出或解析语言
func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages [query]",
		Short: "列出支持的语言，或解析语言代码/名称",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if len(args) == 1 {
				l, err := e.languages.Resolve(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.Code, l.Name)
				return nil
			}

			printLanguages(cmd.OutOrStdout(), e.languages.All())
			return nil
		},
	}
}

// newStatsCommand 显示翻译统计
func newStatsCommand() *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "显示翻译统计信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if e.stats == nil {
				return errors.New("statistics are disabled (stats.enabled = false)")
			}

			v := stats.NewVisualizer(e.stats, cmd.OutOrStdout())
			v.ShowOverview()
			fmt.Fprintln(cmd.OutOrStdout())
			v.ShowLanguagePairs()
			fmt.Fprintln(cmd.OutOrStdout())
			v.ShowFormatStats()
			if recent > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				v.ShowRecentTranslations(recent)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "显示最近 N 条翻译记录（0 表示不显示）")
	return cmd
}

// newLoginCommand 登录并保存会话令牌
func newLoginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "登录翻译服务并保存会话令牌",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			store := auth.NewTokenStore(e.cfg.Auth.TokenFile)
			authenticator := auth.NewAuthenticator(e.cfg.API.BaseURL, docapi.NewHTTPClient(e.cfg.API.Timeout), store)

			session, err := authenticator.Login(cmd.Context(), auth.Credentials{Username: username, Password: password})
			if err != nil {
				return err
			}

			e.log.Debug("会话令牌已保存", zap.String("file", e.cfg.Auth.TokenFile))
			printSuccess(cmd.ErrOrStderr(), "已登录: %s", session.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "用户名")
	cmd.Flags().StringVarP(&password, "password", "p", "", "密码（为空时从标准输入读取）")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// newLogoutCommand 清除会话令牌
func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "清除本地保存的会话令牌",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			authenticator := auth.NewAuthenticator(e.cfg.API.BaseURL, nil, auth.NewTokenStore(e.cfg.Auth.TokenFile))
			if err := authenticator.Logout(); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "已退出登录")
			return nil
		},
	}
}

// newServeCommand 启动 HTTP 服务
func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.pipeline(true)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			srv := server.New(p, server.Options{
				Addr:             addr,
				AllowedOrigins:   e.cfg.Server.AllowedOrigins,
				MaxUploadBytes:   int64(e.cfg.Server.MaxUploadMB) << 20,
				TranslateTimeout: e.translateBudget(),
			}, e.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printSuccess(cmd.ErrOrStderr(), "服务监听 %s", addr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址（默认使用配置 server.addr）")
	return cmd
}

// newVersionCommand 版本信息
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "doctranslator %s\ncommit: %s\nbuilt: %s\n", version, commit, buildDate)
		},
	}
}

// loadFile 读取本地文件并交给流程导入
func loadFile(ctx context.Context, p *pipeline.Pipeline, path string) (*document.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Load(ctx, pipeline.Upload{FileName: path, Data: data})
}

// readInput 读取参数指定的文件，无参数或 "-" 时读取标准输入
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

// writeOutput 写入文件，路径为空时写到标准输出
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
