package generator

import (
	"context"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// 按 Persona 返回固定内容，能走通整条流水线。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch prompt.Persona {
	case PlannerRequirements.Name:
		return "招标文件要求投标文件包括：投标函、技术方案、商务部分。", nil
	case PlannerAugment.Name:
		return "建议补充项目实施方案与售后服务方案。", nil
	case PlannerConsolidate.Name:
		return "1. 投标函\n2. 技术方案\n3. 实施方案\n4. 售后服务方案\n5. 商务部分", nil
	case Analyst.Name:
		return "- 响应招标文件的全部实质性要求\n- 明确交付周期与质量标准", nil
	case Reviewer.Name:
		return "内容完整，格式清晰，符合要求。", nil
	}

	// 撰写与优化：把用户输入的第一行作为提示拼成 Markdown。
	first := prompt.User
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	var sb strings.Builder
	sb.WriteString("### 概述\n\n")
	sb.WriteString("本章节依据招标文件要求编写，**全面响应**各项技术与商务条款。\n\n")
	sb.WriteString("### 要点\n\n")
	sb.WriteString("- 严格执行招标文件约定的交付周期\n")
	sb.WriteString("- 提供 **7×24 小时** 技术支持\n\n")
	sb.WriteString("| 项目 | 承诺 |\n")
	sb.WriteString("|---|---|\n")
	sb.WriteString("| 质量 | 合格 |\n")
	sb.WriteString("| 工期 | 按期交付 |\n\n")
	sb.WriteString("> ")
	sb.WriteString(first)
	sb.WriteString("\n")
	return sb.String(), nil
}
