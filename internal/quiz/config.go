package quiz

// Limits on the number of questions per quiz.
const (
	DefaultCount = 5
	MaxCount     = 20
)

// MaxAttemptsLimit bounds Config.MaxAttempts.
const MaxAttemptsLimit = 3

// Config controls the behavior of the Generator.
type Config struct {
	// Validators is the ordered list of validators run on every extracted
	// item. The first failure rejects the whole quiz.
	Validators []Validator

	// DefaultCount replaces a non-positive requested count.
	DefaultCount int

	// MaterialCap is how many leading chunks form the quiz material.
	MaterialCap int

	// MaxAttempts is how many generations are tried when the output fails
	// extraction. Provider errors are never retried here. Clamped to
	// [1, MaxAttemptsLimit].
	MaxAttempts int

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64
}

// DefaultConfig returns a Config with the standard validator chain and
// recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators:   DefaultValidators(),
		DefaultCount: DefaultCount,
		MaterialCap:  25,
		MaxAttempts:  1,
		MaxTokens:    2048,
		Temperature:  0.3,
	}
}

// Count normalises a requested question count.
func (c Config) Count(n int) int {
	if n <= 0 {
		n = c.DefaultCount
		if n <= 0 {
			n = DefaultCount
		}
	}
	if n > MaxCount {
		n = MaxCount
	}
	return n
}

func (c Config) attempts() int {
	switch {
	case c.MaxAttempts < 1:
		return 1
	case c.MaxAttempts > MaxAttemptsLimit:
		return MaxAttemptsLimit
	default:
		return c.MaxAttempts
	}
}
