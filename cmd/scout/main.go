package main

import (
	"fmt"
	"os"

	scouterrors "scout/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, fix := range suggestedFixes(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", fix)
		}
		os.Exit(1)
	}
}

// suggestedFixes renders the fix actions attached to a ScoutError.
func suggestedFixes(err error) []string {
	var out []string
	for _, fix := range scouterrors.GetSuggestedFixes(scouterrors.CodeOf(err)) {
		switch fix.Type {
		case scouterrors.RunCommand:
			out = append(out, fmt.Sprintf("%s (run: %s)", fix.Description, fix.Command))
		case scouterrors.SetEnv:
			out = append(out, fmt.Sprintf("%s (set %s)", fix.Description, fix.Variable))
		}
	}
	return out
}
