package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kjannette/rate-tracker/internal/password"
)

func main() {
	complexity := flag.String("complexity", "medium", "preset: low, medium, high, max")
	length := flag.Int("length", 0, fmt.Sprintf("override preset length (%d-%d)", password.MinLength, password.MaxLength))
	upper := flag.Bool("upper", false, "include uppercase letters")
	lower := flag.Bool("lower", false, "include lowercase letters")
	digits := flag.Bool("digits", false, "include digits")
	symbols := flag.Bool("symbols", false, "include symbols")
	count := flag.Int("n", 1, "number of passwords")
	flag.Parse()

	opts, ok := password.Preset(password.Complexity(*complexity))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown complexity %q\n", *complexity)
		os.Exit(2)
	}

	// explicit class flags replace the preset's classes
	if *upper || *lower || *digits || *symbols {
		opts.Upper, opts.Lower, opts.Digits, opts.Symbols = *upper, *lower, *digits, *symbols
	}
	if *length != 0 {
		opts.Length = *length
	}

	for i := 0; i < *count; i++ {
		pw, err := password.Generate(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\t%s\n", pw, password.Evaluate(pw))
	}
}
