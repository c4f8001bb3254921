// Package diagram renders Mermaid diagram source to PNG through the mermaid-cli (mmdc).
package diagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Renderer turns diagram source text into image bytes.
type Renderer interface {
	Render(ctx context.Context, source string) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, source string) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, source string) ([]byte, error) {
	return f(ctx, source)
}

var ErrEmptySource = errors.New("empty diagram source")

// Options are the fixed mmdc rendering options.
type Options struct {
	Command    string
	Width      int
	Height     int
	Scale      int
	Background string
	Timeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		Command:    "mmdc",
		Width:      800,
		Height:     600,
		Scale:      3,
		Background: "transparent",
		Timeout:    60 * time.Second,
	}
}

// 图中文字统一使用宋体 16px，与正文一致。
const initDirective = "%%{init: {'theme': 'default', 'themeVariables': { 'fontSize': '16px', 'fontFamily': '宋体' }}}%%\n"

type themeConfig struct {
	Theme          string            `json:"theme"`
	ThemeVariables map[string]string `json:"themeVariables"`
	Flowchart      flowchartConfig   `json:"flowchart"`
}

type flowchartConfig struct {
	Curve       string `json:"curve"`
	Padding     int    `json:"padding"`
	NodeSpacing int    `json:"nodeSpacing"`
	RankSpacing int    `json:"rankSpacing"`
}

func defaultTheme() themeConfig {
	return themeConfig{
		Theme: "default",
		ThemeVariables: map[string]string{
			"fontSize":           "16px",
			"fontFamily":         "宋体",
			"primaryColor":       "#1f77b4",
			"primaryTextColor":   "#000000",
			"primaryBorderColor": "#1f77b4",
			"lineColor":          "#1f77b4",
			"secondaryColor":     "#ff7f0e",
			"tertiaryColor":      "#2ca02c",
		},
		Flowchart: flowchartConfig{
			Curve:       "basis",
			Padding:     15,
			NodeSpacing: 50,
			RankSpacing: 50,
		},
	}
}

// MermaidCLI shells out to mmdc. Every call works in its own temp directory,
// removed when the call returns.
type MermaidCLI struct {
	opts Options
}

func NewMermaidCLI(opts Options) *MermaidCLI {
	def := DefaultOptions()
	if opts.Command == "" {
		opts.Command = def.Command
	}
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Scale <= 0 {
		opts.Scale = def.Scale
	}
	if opts.Background == "" {
		opts.Background = def.Background
	}
	return &MermaidCLI{opts: opts}
}

func (m *MermaidCLI) Render(ctx context.Context, source string) ([]byte, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "bidgen-mermaid-*")
	if err != nil {
		return nil, fmt.Errorf("mermaid: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "diagram.mmd")
	output := filepath.Join(dir, "diagram.png")
	configPath := filepath.Join(dir, "config.json")

	if err := os.WriteFile(input, []byte(initDirective+source), 0o600); err != nil {
		return nil, fmt.Errorf("mermaid: write source: %w", err)
	}
	cfg, err := json.MarshalIndent(defaultTheme(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mermaid: encode config: %w", err)
	}
	if err := os.WriteFile(configPath, cfg, 0o600); err != nil {
		return nil, fmt.Errorf("mermaid: write config: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.opts.Command,
		"-i", input,
		"-o", output,
		"-w", strconv.Itoa(m.opts.Width),
		"-H", strconv.Itoa(m.opts.Height),
		"-b", m.opts.Background,
		"-s", strconv.Itoa(m.opts.Scale),
		"-c", configPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("mermaid: %s failed: %w: %s", m.opts.Command, err, strings.TrimSpace(stderr.String()))
	}

	img, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("mermaid: read image: %w", err)
	}
	return img, nil
}
