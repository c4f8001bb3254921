package generator

import (
	"fmt"
	"time"
)

// Stage names one step of the per-chapter pipeline.
type Stage string

const (
	StageAnalyze Stage = "analyze"
	StageDraft   Stage = "draft"
	StageCheck   Stage = "check"
	StageRevise  Stage = "revise"
)

// ChapterDraft is the outcome of synthesising one chapter.
// Content is either the final text or the placeholder produced by Placeholder.
type ChapterDraft struct {
	Title    string
	Content  string
	Attempts int
	Revised  bool
	// Err 非空表示该章节生成失败，Content 为占位文本。
	Err   error
	Turns []Turn
}

// Failed reports whether Content is a placeholder.
func (d ChapterDraft) Failed() bool {
	return d.Err != nil
}

// Turn 记录一次阶段调用的输出。
type Turn struct {
	Stage     Stage
	Output    string
	CreatedAt time.Time
}

func (d *ChapterDraft) appendTurn(stage Stage, output string) {
	d.Turns = append(d.Turns, Turn{
		Stage:     stage,
		Output:    output,
		CreatedAt: time.Now(),
	})
}

// Placeholder is the fixed text written for a chapter that could not be generated.
func Placeholder(title string) string {
	return fmt.Sprintf("生成%s章节时出错，请检查API配置和网络连接。", title)
}
