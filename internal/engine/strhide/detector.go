package strhide

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

type PatternConfig struct {
	Name     string
	Regex    string
	Severity string
}

type Config struct {
	EntropyThreshold float64
	MinTokenLength   int
	Patterns         []PatternConfig
}

// Finding is a literal that looks like a credential. Hidden strings are
// still recoverable from the output, so findings are worth a warning.
type Finding struct {
	Kind       string
	Severity   string
	Value      string
	Entropy    float64
	Confidence float64
	Method     string
}

type compiledPattern struct {
	name     string
	severity string
	re       *regexp.Regexp
}

type Detector struct {
	entropyThreshold float64
	minTokenLength   int
	patterns         []compiledPattern
	contextRE        *regexp.Regexp
	tokenRE          *regexp.Regexp
}

func NewDetector(cfg Config) (*Detector, error) {
	if cfg.EntropyThreshold <= 0 {
		cfg.EntropyThreshold = 4.0
	}
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = 20
	}

	builtIn := []PatternConfig{
		{Name: "aws-access-key-id", Severity: "high", Regex: `\bAKIA[0-9A-Z]{16}\b`},
		{Name: "github-pat", Severity: "high", Regex: `\bghp_[A-Za-z0-9]{36}\b`},
		{Name: "azure-storage-key", Severity: "high", Regex: `AccountKey=[A-Za-z0-9+/=]{40,}`},
		{Name: "sql-connection-password", Severity: "medium", Regex: `(?i)\b(?:password|pwd)=[^;]{4,}`},
		{Name: "slack-token", Severity: "high", Regex: `\bxox[baprs]-[A-Za-z0-9-]{10,}\b`},
		{Name: "private-key-block", Severity: "critical", Regex: `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`},
	}

	patterns, err := compilePatterns(append(builtIn, cfg.Patterns...))
	if err != nil {
		return nil, err
	}

	return &Detector{
		entropyThreshold: cfg.EntropyThreshold,
		minTokenLength:   cfg.MinTokenLength,
		patterns:         patterns,
		contextRE:        regexp.MustCompile(`(?i)(password|passwd|secret|api_?key|token|access_?key|private_?key|credential)`),
		tokenRE:          regexp.MustCompile(`^[A-Za-z0-9_\-+=:/.]+$`),
	}, nil
}

// Classify inspects one literal. method is the name of the method that
// loads it and lends context to otherwise ambiguous values.
func (d *Detector) Classify(method, literal string) (Finding, bool) {
	if literal == "" || shouldIgnoreCandidate(literal) {
		return Finding{}, false
	}

	for _, pattern := range d.patterns {
		if pattern.re.MatchString(literal) {
			return Finding{
				Kind:       pattern.name,
				Severity:   pattern.severity,
				Value:      literal,
				Entropy:    shannonEntropy(literal),
				Confidence: 0.99,
				Method:     method,
			}, true
		}
	}

	if len(literal) < d.minTokenLength {
		return Finding{}, false
	}
	entropy := shannonEntropy(literal)

	if d.contextRE.MatchString(method) && entropy >= d.entropyThreshold*0.8 {
		confidence := 0.70
		if entropy >= d.entropyThreshold {
			confidence = 0.85
		}
		return Finding{
			Kind:       "sensitive-method",
			Severity:   "medium",
			Value:      literal,
			Entropy:    entropy,
			Confidence: confidence,
			Method:     method,
		}, true
	}

	if d.tokenRE.MatchString(literal) && containsLetterAndDigit(literal) && entropy >= d.entropyThreshold {
		return Finding{
			Kind:       "high-entropy-string",
			Severity:   "low",
			Value:      literal,
			Entropy:    entropy,
			Confidence: 0.6,
			Method:     method,
		}, true
	}
	return Finding{}, false
}

func compilePatterns(cfg []PatternConfig) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(cfg))
	for _, pattern := range cfg {
		name := strings.TrimSpace(pattern.Name)
		if name == "" {
			return nil, fmt.Errorf("secret pattern name must not be empty")
		}
		expr := strings.TrimSpace(pattern.Regex)
		if expr == "" {
			return nil, fmt.Errorf("secret pattern %q regex must not be empty", name)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile secret pattern %q: %w", name, err)
		}
		severity := strings.ToLower(strings.TrimSpace(pattern.Severity))
		if severity == "" {
			severity = "medium"
		}
		compiled = append(compiled, compiledPattern{name: name, severity: severity, re: re})
	}
	return compiled, nil
}

func containsLetterAndDigit(value string) bool {
	hasLetter := false
	hasDigit := false
	for _, r := range value {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}

func shouldIgnoreCandidate(value string) bool {
	lower := strings.ToLower(value)
	for _, blocked := range []string{"example", "sample", "dummy", "placeholder", "changeme", "notasecret"} {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}

func shannonEntropy(value string) float64 {
	if value == "" {
		return 0
	}
	freq := make(map[rune]float64)
	for _, r := range value {
		freq[r]++
	}
	length := float64(len([]rune(value)))
	entropy := 0.0
	for _, count := range freq {
		p := count / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}
