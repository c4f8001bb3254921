package generator

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// 章节名前的编号：阿拉伯数字、中文数字、点号、顿号与空白。
var sectionNumbering = regexp.MustCompile(`^[0-9一二三四五六七八九十.、\s]+`)

// Planner 通过三轮调用推断投标文件的章节目录。
type Planner struct {
	llm LLMClient
	settings
}

func NewPlanner(llm LLMClient, opts ...Option) (*Planner, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Planner{llm: llm, settings: newSettings(opts)}, nil
}

// Plan runs requirements extraction, augmentation and consolidation in sequence
// and parses the consolidated list. Each step consumes the previous step's output.
func (p *Planner) Plan(ctx context.Context, tenderText string) ([]string, error) {
	requirements, err := complete(ctx, p.llm, p.callTimeout, BuildRequirementsPrompt(tenderText))
	if err != nil {
		return nil, &PlanningError{Step: "requirements", Err: err}
	}
	p.logger.Debug("planner requirements extracted", "chars", len([]rune(requirements)))

	suggestions, err := complete(ctx, p.llm, p.callTimeout, BuildAugmentPrompt(requirements))
	if err != nil {
		return nil, &PlanningError{Step: "augment", Err: err}
	}

	final, err := complete(ctx, p.llm, p.callTimeout, BuildConsolidatePrompt(requirements, suggestions))
	if err != nil {
		return nil, &PlanningError{Step: "consolidate", Err: err}
	}

	sections := ParseSectionList(final)
	if len(sections) == 0 {
		return nil, &PlanningError{Step: "parse", Err: ErrEmptyPlan}
	}
	p.logger.Info("sections planned", "count", len(sections), "sections", sections)
	return sections, nil
}

// ParseSectionList turns the consolidation reply into de-numbered titles,
// keeping line order and dropping lines that end up empty.
func ParseSectionList(raw string) []string {
	var sections []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		title := strings.TrimSpace(sectionNumbering.ReplaceAllString(line, ""))
		if title == "" {
			continue
		}
		sections = append(sections, title)
	}
	return sections
}
