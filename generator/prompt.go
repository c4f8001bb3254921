package generator

import (
	"fmt"
	"strings"
)

// TenderPromptLimit 是写入提示词的招标文件最大字符数，超出部分直接截断以控制请求大小。
const TenderPromptLimit = 4000

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt 表示发送给 LLM 的消息集合以及采样参数。
type Prompt struct {
	Persona     string
	System      string
	User        string
	History     []Message
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Message 用于少量历史（可选）。
type Message struct {
	Role    string
	Content string
}

// Persona fixes the system prompt and sampling profile of one pipeline stage.
type Persona struct {
	Name        string
	System      string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

func (p Persona) prompt(user string) Prompt {
	return Prompt{
		Persona:     p.Name,
		System:      p.System,
		User:        user,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		TopP:        p.TopP,
	}
}

// 章节规划的三个角色共用 structure planner 画像，仅 system prompt 不同。
var (
	PlannerRequirements = Persona{
		Name:        "planner_requirements",
		System:      "你是一个专业的标书结构分析专家，擅长提取招标文件中的编制要求。",
		Temperature: 0.2, MaxTokens: 1000, TopP: 0.9,
	}
	PlannerAugment = Persona{
		Name:        "planner_augment",
		System:      "你是一个专业的标书结构设计专家，擅长根据行业特点设计完整的标书结构。",
		Temperature: 0.2, MaxTokens: 1000, TopP: 0.9,
	}
	PlannerConsolidate = Persona{
		Name:        "planner_consolidate",
		System:      "你是一个专业的标书结构优化专家，擅长整合和优化标书章节结构。",
		Temperature: 0.2, MaxTokens: 1000, TopP: 0.9,
	}

	Analyst = Persona{
		Name:        "analyst",
		System:      "你是一个专业的标书分析专家，擅长提取招标文件中的关键要求。",
		Temperature: 0.2, MaxTokens: 1000, TopP: 0.9,
	}
	// Writer 的采样参数来自 generation 配置，见 WithWriterSampling。
	Writer = Persona{
		Name:        "writer",
		System:      "你是一个专业的标书撰写专家，擅长根据招标文件生成高质量的标书内容。",
		Temperature: 0.7, MaxTokens: 4000, TopP: 0.9,
	}
	Reviewer = Persona{
		Name:        "reviewer",
		System:      "你是一个专业的标书质量检查专家。",
		Temperature: 0.2, MaxTokens: 1000, TopP: 0.9,
	}
	Optimizer = Persona{
		Name:        "optimizer",
		System:      "你是一个专业的标书优化专家。",
		Temperature: 0.3, MaxTokens: 4000, TopP: 0.9,
	}
)

// TruncateTender keeps the first TenderPromptLimit characters of the tender text.
func TruncateTender(text string) string {
	return truncateRunes(text, TenderPromptLimit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// BuildRequirementsPrompt 第一步：提取招标文件中的编制要求。
func BuildRequirementsPrompt(tender string) Prompt {
	var sb strings.Builder
	sb.WriteString("请仔细分析以下招标文件内容，找出所有关于'投标文件编制要求'、'标书结构要求'、'投标文件组成'等相关内容。重点关注：\n")
	sb.WriteString("1. 明确要求的章节和内容\n")
	sb.WriteString("2. 必须包含的文件和材料\n")
	sb.WriteString("3. 特殊的格式或结构要求\n")
	sb.WriteString("4. 评分标准中提到的重点内容\n\n")
	sb.WriteString("招标文件内容：\n")
	sb.WriteString(TruncateTender(tender))
	return PlannerRequirements.prompt(sb.String())
}

// BuildAugmentPrompt 第二步：根据行业经验补充常规章节。
func BuildAugmentPrompt(requirements string) Prompt {
	var sb strings.Builder
	sb.WriteString("基于以下招标文件要求和行业经验，请补充必要的章节：\n\n")
	sb.WriteString(fmt.Sprintf("招标文件要求：\n%s\n\n", requirements))
	sb.WriteString("请考虑：\n")
	sb.WriteString("1. 技术方案相关章节\n")
	sb.WriteString("2. 商务相关章节\n")
	sb.WriteString("3. 资质证明相关章节\n")
	sb.WriteString("4. 项目管理相关章节\n")
	sb.WriteString("5. 其他必要的补充章节\n\n")
	sb.WriteString("请列出所有必要的章节，并说明每个章节的必要性。")
	return PlannerAugment.prompt(sb.String())
}

// BuildConsolidatePrompt 第三步：合并去重，输出每行一个章节名。
func BuildConsolidatePrompt(requirements, suggestions string) Prompt {
	var sb strings.Builder
	sb.WriteString("请根据以下信息，整理出最终的标书章节结构：\n\n")
	sb.WriteString(fmt.Sprintf("招标文件要求：\n%s\n\n", requirements))
	sb.WriteString(fmt.Sprintf("行业建议：\n%s\n\n", suggestions))
	sb.WriteString("请：\n")
	sb.WriteString("1. 合并重复的章节\n")
	sb.WriteString("2. 按照逻辑顺序排列章节\n")
	sb.WriteString("3. 确保章节名称规范统一\n")
	sb.WriteString("4. 只返回最终的章节名称列表，每行一个章节名\n")
	return PlannerConsolidate.prompt(sb.String())
}

// BuildAnalysisPrompt 分析招标文件中与某一章节相关的要求。
func BuildAnalysisPrompt(tender, title string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("请仔细分析以下招标文件中与\"%s\"相关的要求和重点：\n", title))
	sb.WriteString("1. 找出所有明确的要求和标准\n")
	sb.WriteString("2. 识别隐含的期望和关注点\n")
	sb.WriteString("3. 总结关键的技术指标和参数\n")
	sb.WriteString("4. 列出需要特别注意的要点\n\n")
	sb.WriteString("招标文件内容：\n")
	sb.WriteString(TruncateTender(tender))
	return Analyst.prompt(sb.String())
}

// BuildDraftPrompt 基于需求分析生成章节正文。
func BuildDraftPrompt(writer Persona, title, analysis string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("基于以下招标文件要求和分析，生成标书的%s章节：\n\n", title))
	sb.WriteString(fmt.Sprintf("招标文件要求分析：\n%s\n\n", analysis))
	sb.WriteString("生成要求：\n")
	sb.WriteString("1. 内容必须严格符合招标文件的要求\n")
	sb.WriteString("2. 语言要专业、规范、准确\n")
	sb.WriteString("3. 格式要清晰、层次分明\n")
	sb.WriteString("4. 突出我们的优势和特点\n")
	sb.WriteString("5. 确保所有关键要求都得到响应\n")
	sb.WriteString("6. 使用具体的数据和案例支持论述\n\n")
	sb.WriteString("请生成完整的章节内容。\n")
	return writer.prompt(sb.String())
}

// BuildCheckPrompt 让质检角色对照需求分析检查初稿。
func BuildCheckPrompt(title, analysis, content string) Prompt {
	var sb strings.Builder
	sb.WriteString("请检查以下生成的标书章节内容是否符合要求：\n\n")
	sb.WriteString(fmt.Sprintf("章节名称：%s\n", title))
	sb.WriteString(fmt.Sprintf("招标文件要求分析：\n%s\n\n", analysis))
	sb.WriteString(fmt.Sprintf("生成内容：\n%s\n\n", content))
	sb.WriteString("请检查：\n")
	sb.WriteString("1. 是否完整响应了招标文件的要求\n")
	sb.WriteString("2. 内容是否专业、规范\n")
	sb.WriteString("3. 格式是否清晰\n")
	sb.WriteString("4. 是否有遗漏的重要信息\n\n")
	sb.WriteString("如果发现问题，请指出具体问题并提供改进建议。\n")
	return Reviewer.prompt(sb.String())
}

// BuildRevisionPrompt 根据质检结果修订稿件。
func BuildRevisionPrompt(optimizer Persona, content, review string) Prompt {
	var sb strings.Builder
	sb.WriteString("根据以下质量检查结果，优化标书章节内容：\n\n")
	sb.WriteString(fmt.Sprintf("原始内容：\n%s\n\n", content))
	sb.WriteString(fmt.Sprintf("质量检查结果：\n%s\n\n", review))
	sb.WriteString("请根据检查结果优化内容，确保符合所有要求。\n")
	return optimizer.prompt(sb.String())
}
