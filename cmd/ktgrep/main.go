// Command ktgrep is a thin line-oriented grep/sed-alike wrapper around
// ktregex's public facade: given a pattern and a list of files, it
// either prints matching lines or, with --replace/-r, rewrites them using
// ktregex's template syntax.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krokodile/ktregex"
)

var (
	insensitive bool
	extended    bool
	invertMatch bool
	lineNumber  bool
	countOnly   bool
	replaceWith string
	indicator   string
)

var command = &cobra.Command{
	Use:  "ktgrep PATTERN [FILE...]",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := args[0]
		files := args[1:]

		options := ktregex.Unanchored
		if insensitive {
			options |= ktregex.Insensitive
		}
		if extended {
			options |= ktregex.Extended
		}
		if replaceWith != "" {
			options |= ktregex.Global
		}

		re, err := ktregex.CompileOptions(pattern, options)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ktgrep: %s\n", err)
			os.Exit(2)
		}
		defer re.Close()

		exitCode := 1
		if len(files) == 0 {
			if runOne(re, os.Stdin, "<stdin>", false) {
				exitCode = 0
			}
		} else {
			showNames := len(files) > 1
			for _, name := range files {
				f, err := os.Open(name)
				if err != nil {
					fmt.Fprintf(os.Stderr, "ktgrep: %s\n", err)
					continue
				}
				if runOne(re, f, name, showNames) {
					exitCode = 0
				}
				f.Close()
			}
		}
		os.Exit(exitCode)
	},
}

// runOne scans src line by line, printing matches (or replacements), and
// reports whether anything matched.
func runOne(re *ktregex.Regex, src *os.File, name string, showNames bool) bool {
	scanner := bufio.NewScanner(src)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	matchedAny := false
	count := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if replaceWith != "" {
			out, err := re.Filter([]byte(line), replaceWith, indicator)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ktgrep: %s\n", err)
				continue
			}
			if len(re.GetVec()) > 0 {
				matchedAny = true
			}
			fmt.Fprintln(writer, out)
			continue
		}

		matched, err := re.Exec([]byte(line))
		if err != nil {
			fmt.Fprintf(os.Stderr, "ktgrep: %s\n", err)
			continue
		}
		if matched == invertMatch {
			continue
		}
		matchedAny = true
		count++
		if countOnly {
			continue
		}
		if showNames {
			fmt.Fprintf(writer, "%s:", name)
		}
		if lineNumber {
			fmt.Fprintf(writer, "%d:", lineNo)
		}
		fmt.Fprintln(writer, line)
	}
	if countOnly {
		if showNames {
			fmt.Fprintf(writer, "%s:", name)
		}
		fmt.Fprintln(writer, count)
	}
	return matchedAny
}

func init() {
	command.Flags().BoolVarP(&insensitive, "ignore-case", "i", false, "match case-insensitively")
	command.Flags().BoolVarP(&extended, "extended", "x", false, "ignore whitespace and # comments in the pattern")
	command.Flags().BoolVarP(&invertMatch, "invert-match", "v", false, "print only non-matching lines")
	command.Flags().BoolVarP(&lineNumber, "line-number", "n", false, "prefix each printed line with its line number")
	command.Flags().BoolVarP(&countOnly, "count", "c", false, "print only a count of matching lines per file")
	command.Flags().StringVarP(&replaceWith, "replace", "r", "", "rewrite each line using this template instead of filtering")
	command.Flags().StringVar(&indicator, "indicator", "$", "the template's capture-group reference prefix")
}

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
