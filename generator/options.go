package generator

import (
	"log/slog"
	"time"

	"auto_bid_writer/logging"
)

type settings struct {
	callTimeout time.Duration
	logger      *slog.Logger
	classifier  ReviewClassifier
	writer      Persona
	optimizer   Persona
}

// Option configures a Planner or a Synthesizer.
type Option func(*settings)

// WithCallTimeout bounds every single model call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *settings) { s.callTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClassifier replaces the marker heuristic that gates the revision pass.
func WithClassifier(c ReviewClassifier) Option {
	return func(s *settings) { s.classifier = c }
}

// WithWriterSampling applies generation.temperature/max_tokens/top_p to the chapter writer.
// The optimizer shares the writer's token budget. A negative temperature keeps the default; 0 is honoured.
func WithWriterSampling(temperature float64, maxTokens int, topP float64) Option {
	return func(s *settings) {
		if temperature >= 0 {
			s.writer.Temperature = temperature
		}
		if maxTokens > 0 {
			s.writer.MaxTokens = maxTokens
			s.optimizer.MaxTokens = maxTokens
		}
		if topP > 0 {
			s.writer.TopP = topP
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		classifier: DefaultClassifier(),
		writer:     Writer,
		optimizer:  Optimizer,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = logging.OrNop(s.logger)
	if s.classifier == nil {
		s.classifier = DefaultClassifier()
	}
	return s
}
