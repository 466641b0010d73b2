// Package password generates random passwords from selectable character
// classes and scores their strength.
package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Digits    = "0123456789"
	Symbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	MinLength = 6
	MaxLength = 32
)

var (
	ErrNoCharset     = errors.New("at least one character class must be selected")
	ErrInvalidLength = fmt.Errorf("length must be between %d and %d", MinLength, MaxLength)
)

type Options struct {
	Length  int
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
	ComplexityMax    Complexity = "max"
)

var presets = map[Complexity]Options{
	ComplexityLow:    {Length: 8, Upper: true, Lower: true},
	ComplexityMedium: {Length: 12, Upper: true, Lower: true, Digits: true},
	ComplexityHigh:   {Length: 16, Upper: true, Lower: true, Digits: true, Symbols: true},
	ComplexityMax:    {Length: 20, Upper: true, Lower: true, Digits: true, Symbols: true},
}

// Preset returns the options for a named complexity level.
func Preset(c Complexity) (Options, bool) {
	o, ok := presets[Complexity(strings.ToLower(string(c)))]
	return o, ok
}

func (o Options) Validate() error {
	if o.Length < MinLength || o.Length > MaxLength {
		return fmt.Errorf("%w, got %d", ErrInvalidLength, o.Length)
	}
	if o.Charset() == "" {
		return ErrNoCharset
	}
	return nil
}

// Charset concatenates the selected classes.
func (o Options) Charset() string {
	var b strings.Builder
	if o.Upper {
		b.WriteString(Uppercase)
	}
	if o.Lower {
		b.WriteString(Lowercase)
	}
	if o.Digits {
		b.WriteString(Digits)
	}
	if o.Symbols {
		b.WriteString(Symbols)
	}
	return b.String()
}

// Generate picks every character uniformly from the combined charset.
func Generate(o Options) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	charset := o.Charset()
	size := big.NewInt(int64(len(charset)))

	out := make([]byte, o.Length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}
