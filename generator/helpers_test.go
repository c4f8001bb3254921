package generator

import (
	"context"
	"sync"
)

// scriptedLLM answers by persona and records every prompt it receives.
type scriptedLLM struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	prompts   []Prompt
}

func (s *scriptedLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if err := s.errs[prompt.Persona]; err != nil {
		return "", err
	}
	return s.responses[prompt.Persona], nil
}

func (s *scriptedLLM) personas() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p.Persona)
	}
	return out
}
