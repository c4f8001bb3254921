package generator

import (
	"strings"
)

const fence = "```"

// PostProcess 校验并规整模型输出。空输出视为失败。
func PostProcess(raw string) (string, error) {
	md := strings.TrimSpace(raw)
	if body, ok := unwrapFence(md); ok {
		md = strings.TrimSpace(body)
	}
	if md == "" {
		return "", ErrEmptyCompletion
	}
	return md, nil
}

// unwrapFence 剥离包裹全文的那一层代码块。
// 裸 ``` 包裹时正文里不能再有围栏行；```markdown/md 包裹时正文内的围栏须成对出现。
func unwrapFence(md string) (string, bool) {
	lines := strings.Split(md, "\n")
	if len(lines) < 2 {
		return "", false
	}
	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.HasPrefix(first, fence) || last != fence {
		return "", false
	}
	info := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(first, fence)))
	labeled := info == "markdown" || info == "md"
	if info != "" && !labeled {
		return "", false
	}
	body := lines[1 : len(lines)-1]
	open := false
	for _, l := range body {
		if !strings.HasPrefix(strings.TrimSpace(l), fence) {
			continue
		}
		if !labeled {
			return "", false
		}
		open = !open
	}
	if open {
		return "", false
	}
	return strings.Join(body, "\n"), true
}
