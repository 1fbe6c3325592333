package muzzle

import (
	"log/slog"

	"github.com/mabhi256/jmuzzle/internal/logging"
)

type settings struct {
	logger *slog.Logger
	policy Policy
	jobs   int
}

// Option configures a Creator, Matcher or Checker
type Option func(*settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithPolicy(policy Policy) Option {
	return func(s *settings) {
		s.policy = policy
	}
}

// WithJobs bounds how many modules a Checker matches at once
func WithJobs(n int) Option {
	return func(s *settings) {
		s.jobs = n
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger: logging.Discard(),
		policy: DefaultPolicy(),
		jobs:   1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.jobs < 1 {
		s.jobs = 1
	}
	return s
}
