package tutor

import (
	"fmt"
	"time"
)

// Config holds the orchestrator's tunables.
type Config struct {
	// CacheResponses stores accepted answers so they can stand in when
	// generation later fails for the same question.
	CacheResponses bool `yaml:"cache_responses"`

	// TryAgain is the response when every generation path failed.
	TryAgain string `yaml:"try_again"`

	Writer WriterConfig `yaml:"writer"`
}

// WriterConfig configures the background log writer.
type WriterConfig struct {
	QueueSize   int           `yaml:"queue_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// DefaultConfig returns the default orchestrator tunables.
func DefaultConfig() Config {
	return Config{
		CacheResponses: true,
		TryAgain:       "I couldn't put an answer together just now. Please try again shortly.",
		Writer: WriterConfig{
			QueueSize:   256,
			MaxAttempts: 3,
			Backoff:     200 * time.Millisecond,
		},
	}
}

// Validate checks the tunables.
func (c Config) Validate() error {
	switch {
	case c.TryAgain == "":
		return fmt.Errorf("tutor: try_again must not be empty")
	case c.Writer.QueueSize < 1:
		return fmt.Errorf("tutor: writer.queue_size must be >= 1")
	case c.Writer.MaxAttempts < 1:
		return fmt.Errorf("tutor: writer.max_attempts must be >= 1")
	case c.Writer.Backoff < 0:
		return fmt.Errorf("tutor: writer.backoff must be >= 0")
	}
	return nil
}
