package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"auto_bid_writer/config"
	"auto_bid_writer/diagram"
	"auto_bid_writer/generator"
	"auto_bid_writer/logging"
	"auto_bid_writer/metrics"
	"auto_bid_writer/pipeline"
	"auto_bid_writer/publisher"
	"auto_bid_writer/store"
)

var rootCmd = &cobra.Command{
	Use:   "bidgen",
	Short: "bidgen 根据招标文件自动生成投标文件",
	Long: `bidgen reads tender documents, infers the required bid chapters, drafts and
reviews every chapter with an LLM and renders the merged proposal as DOCX.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "path to config.yaml")
	rootCmd.PersistentFlags().String("log-level", "", "debug|info|warn|error (overrides log.level)")
	rootCmd.AddCommand(generateCmd, renderCmd, previewCmd, serveCmd)
}

// app holds what every command needs after the config is loaded.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	logger := logging.New(logging.ParseLevel(cfg.Log.Level), os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return &app{cfg: cfg, logger: logger, registry: reg, metrics: m}, nil
}

func buildLLM(cfg config.LLMConfig) (generator.LLMClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderMock:
		return generator.MockLLM{}, nil
	case config.ProviderOpenAI, config.ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口，base_url 指向其网关即可。
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.Provider,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}

// buildStore returns the chapter store and a close func.
func buildStore(cfg config.Config) (store.ChapterStore, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		var opts []store.RedisOption
		if cfg.Storage.RedisPrefix != "" {
			opts = append(opts, store.WithPrefix(cfg.Storage.RedisPrefix))
		}
		if cfg.Storage.RedisTTL > 0 {
			opts = append(opts, store.WithTTL(cfg.Storage.RedisTTL))
		}
		s := store.NewRedisStore(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, opts...)
		return s, s.Close, nil
	case config.BackendFile, "":
		return store.NewFileStore(cfg.Paths.OutputDir), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (a *app) buildPublisher() *publisher.Publisher {
	r := a.cfg.Render
	return publisher.New(publisher.Options{
		Diagrams: diagram.NewMermaidCLI(diagram.Options{
			Command:    r.MermaidCmd,
			Width:      r.DiagramWidth,
			Height:     r.DiagramHeight,
			Scale:      r.DiagramScale,
			Background: r.Background,
			Timeout:    r.DiagramTimeout,
		}),
		HTML:      r.HTML,
		Logger:    a.logger,
		OnDiagram: a.metrics.ObserveDiagram,
	})
}

// buildPipeline wires LLM, planner, synthesizer, orchestrator, store and publisher.
func (a *app) buildPipeline() (*pipeline.Pipeline, func() error, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	llm, err := buildLLM(a.cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	llm = a.metrics.InstrumentLLM(llm)

	gen := a.cfg.Generation
	opts := []generator.Option{
		generator.WithCallTimeout(gen.CallTimeout),
		generator.WithLogger(a.logger),
		generator.WithWriterSampling(gen.Temperature, gen.MaxTokens, gen.TopP),
	}
	planner, err := generator.NewPlanner(llm, opts...)
	if err != nil {
		return nil, nil, err
	}
	synth, err := generator.NewSynthesizer(llm, opts...)
	if err != nil {
		return nil, nil, err
	}

	chapters, closeStore, err := buildStore(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	orch, err := pipeline.NewOrchestrator(synth, chapters,
		pipeline.WithWorkers(gen.Workers),
		pipeline.WithFailureBudget(gen.FailureBudget),
		pipeline.WithOrchestratorLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	p, err := pipeline.New(pipeline.Deps{
		Planner:      planner,
		Orchestrator: orch,
		Assembler:    pipeline.NewAssembler(chapters, a.logger),
		Publisher:    a.buildPublisher(),
		OutputDir:    a.cfg.Paths.OutputDir,
		Metrics:      a.metrics,
		Logger:       a.logger,
	})
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return p, closeStore, nil
}
