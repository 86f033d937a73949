package agent

// DefaultMaxToolIterations bounds the reasoning loop when no explicit
// budget is configured.
const DefaultMaxToolIterations = 3

// Config holds the configurable knobs for orchestrator behaviour.
type Config struct {
	// SystemPrompt is prepended to every fresh conversation.
	SystemPrompt string

	// MaxToolIterations bounds the reasoning loop. Zero means
	// DefaultMaxToolIterations.
	MaxToolIterations int
}

func (c Config) maxIterations() int {
	if c.MaxToolIterations < 1 {
		return DefaultMaxToolIterations
	}
	return c.MaxToolIterations
}
