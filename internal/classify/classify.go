// Package classify decides whether an agent failure is worth retrying.
//
// Classification is a regex pattern match against free-text error output.
// It is inherently approximate, so the classifier sits behind a narrow
// interface and callers treat Unknown conservatively as not retryable.
package classify

import "regexp"

// Class is the retry classification of a failure.
type Class int

const (
	// Unknown means no pattern matched. Callers treat this as Permanent
	// to avoid infinite loops on unrecognized errors.
	Unknown Class = iota

	// Transient failures (network, timeout, rate limit) may be retried.
	Transient

	// Permanent failures (syntax, import, type errors) are not retried.
	Permanent
)

// String returns the lowercase name of the class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classifier decides the retry class of an error message. Implementations
// are swappable; the retry core only sees the Class.
type Classifier interface {
	Classify(text string) Class
}

// Default permanent-failure patterns. Checked before transient patterns so
// mixed messages ("syntax error after retrying on timeout") stay
// non-retryable.
var permanentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)syntax\s*error`),
	regexp.MustCompile(`(?i)(import|module)\s*(error|not\s*found)`),
	regexp.MustCompile(`(?i)type\s*error`),
	regexp.MustCompile(`(?i)name\s*error`),
	regexp.MustCompile(`(?i)undefined\s+(reference|symbol|variable|function)`),
	regexp.MustCompile(`(?i)compilation\s+failed`),
	regexp.MustCompile(`(?i)invalid\s+(argument|syntax|configuration)`),
	regexp.MustCompile(`(?i)assertion\s+failed`),
	regexp.MustCompile(`(?i)permission\s+denied`),
}

// Default transient-failure patterns.
var transientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)timed?\s*out`),
	regexp.MustCompile(`(?i)connection\s+(refused|reset|closed)`),
	regexp.MustCompile(`(?i)network\s+(error|unreachable)`),
	regexp.MustCompile(`(?i)temporar(y|ily)\s+(failure|unavailable)`),
	regexp.MustCompile(`(?i)rate\s*limit`),
	regexp.MustCompile(`(?i)too\s+many\s+requests`),
	regexp.MustCompile(`(?i)you'?ve hit your limit`),
	regexp.MustCompile(`(?i)\b(429|502|503|504)\b`),
	regexp.MustCompile(`(?i)server\s+(error|overloaded)`),
	regexp.MustCompile(`(?i)unexpected\s+EOF`),
}

// PatternClassifier classifies by regex pattern lists.
type PatternClassifier struct {
	permanent []*regexp.Regexp
	transient []*regexp.Regexp
}

// NewPatternClassifier returns a classifier with the default pattern lists.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{
		permanent: permanentPatterns,
		transient: transientPatterns,
	}
}

// Classify matches text against the permanent list, then the transient
// list. Empty text and unmatched text both return Unknown.
func (c *PatternClassifier) Classify(text string) Class {
	if text == "" {
		return Unknown
	}
	for _, p := range c.permanent {
		if p.MatchString(text) {
			return Permanent
		}
	}
	for _, p := range c.transient {
		if p.MatchString(text) {
			return Transient
		}
	}
	return Unknown
}
