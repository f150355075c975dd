package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"

	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/internal/languages"
)

// 预览列宽（按显示宽度计算，兼容中日韩字符）
const previewWidth = 60

func printSuccess(w io.Writer, format string, args ...interface{}) {
	ok := color.New(color.FgGreen, color.Bold)
	ok.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// printBundleSummary 输出导入结果摘要
func printBundleSummary(w io.Writer, b *document.Bundle) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintln(w, "文档摘要")

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"项", "值"})
	tw.AppendRow(table.Row{"文件", b.FileName})
	tw.AppendRow(table.Row{"格式", string(b.Format)})
	tw.AppendRow(table.Row{"HTML 长度", len(b.HTML)})
	tw.AppendRow(table.Row{"样式规则", strings.Count(b.StyleSheet, "}")})
	tw.AppendRow(table.Row{"预览", preview(b.HTML)})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

// printLanguages 输出语言表
func printLanguages(w io.Writer, langs []languages.Language) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"代码", "名称"})
	for _, l := range langs {
		tw.AppendRow(table.Row{l.Code, l.Name})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

// preview 压缩空白并截断到固定显示宽度
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, previewWidth, "…")
}
