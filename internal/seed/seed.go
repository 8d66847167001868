// Package seed 生成演示用的页面与文章。
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/service"
	"gorm.io/gorm"
)

// Result 汇总本次写入的数量。
type Result struct {
	Pages        int
	Posts        int
	SkippedPages int
	SkippedPosts int
}

type sample struct {
	title    string
	content  string
	featured bool
}

var samplePages = []sample{
	{
		title: "About",
		content: "## hi, i am neuralwired\n\n" +
			"I write about machine learning, deep learning and the engineering around them.\n\n" +
			"- notes from papers I am reading\n- small experiments with code\n- lessons from shipping models",
	},
	{
		title:   "Projects",
		content: "A running list of side projects, most of them half finished.",
	},
}

var samplePosts = []sample{
	{
		title: "Attention, Explained Slowly",
		content: "Self-attention lets every token look at every other token.\n\n" +
			"In this post we build scaled dot-product attention step by step, starting from a single query " +
			"and ending with multi-head attention as used in transformers.",
		featured: true,
	},
	{
		title: "Why Your Learning Rate Is Wrong",
		content: "Most training runs that diverge do so in the first few hundred steps.\n\n" +
			"Warmup, cosine decay and a quick learning rate range test fix more problems than any new optimizer.",
	},
	{
		title: "Notes on Gradient Checkpointing",
		content: "Gradient checkpointing trades compute for memory by recomputing activations in the backward pass.\n\n" +
			"| model | memory | step time |\n|---|---|---|\n| baseline | 24 GB | 1.0x |\n| checkpointed | 11 GB | 1.3x |",
		featured: true,
	},
	{
		title: "Evaluating Small Language Models",
		content: "Benchmarks saturate quickly. A held-out set of tasks you actually care about tells you more " +
			"than a leaderboard position.",
	},
}

// Options 控制示例数据的写入方式。
type Options struct {
	// Editor 为空时使用 "seed"。
	Editor service.Editor
	// Now 是最新一篇文章的发布时间，更早的文章依次提前一天。
	Now func() time.Time
}

// Run 写入示例页面与文章。已存在的页面按标题跳过；已有文章时不再写入文章。
func Run(ctx context.Context, gdb *gorm.DB, opts Options) (Result, error) {
	editor := opts.Editor
	if !editor.Valid() {
		editor = service.Editor{Username: "seed"}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	pages := service.NewPageService(gdb)
	var result Result

	for _, page := range samplePages {
		exists, err := titleExists(ctx, gdb, page.title, false)
		if err != nil {
			return result, err
		}
		if exists {
			result.SkippedPages++
			continue
		}
		if _, err := pages.Create(ctx, editor, service.PageInput{
			Title:   page.title,
			Content: page.content,
			Format:  "markdown",
		}); err != nil {
			return result, fmt.Errorf("create page %q: %w", page.title, err)
		}
		result.Pages++
	}

	var postCount int64
	if err := gdb.WithContext(ctx).Model(&db.Page{}).Where("is_blog = ?", true).Count(&postCount).Error; err != nil {
		return result, fmt.Errorf("count posts: %w", err)
	}
	if postCount > 0 {
		result.SkippedPosts = len(samplePosts)
		return result, nil
	}

	latest := now()
	for i, post := range samplePosts {
		published := latest.Add(-time.Duration(i) * 24 * time.Hour)
		pages.SetClock(func() time.Time { return published })
		if _, err := pages.Create(ctx, editor, service.PageInput{
			Title:    post.title,
			Content:  post.content,
			Format:   "markdown",
			IsBlog:   true,
			Featured: post.featured,
		}); err != nil {
			return result, fmt.Errorf("create post %q: %w", post.title, err)
		}
		result.Posts++
	}
	return result, nil
}

func titleExists(ctx context.Context, gdb *gorm.DB, title string, isBlog bool) (bool, error) {
	var page db.Page
	err := gdb.WithContext(ctx).Where("title = ? AND is_blog = ?", title, isBlog).First(&page).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check page %q: %w", title, err)
}
