package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/vendor-relay/targets"
)

/* validate-targets - Standalone CLI tool to validate targets.yaml
 * Usage: go run cmd/validate-targets/main.go [targets.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	targetsFile := "targets.yaml"
	if len(os.Args) > 1 {
		targetsFile = os.Args[1]
	}

	fmt.Printf("Validating targets file: %s\n", targetsFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := targets.NewLoader()
	if err := loader.Load(targetsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d target(s):\n", len(loaded))

	for i, target := range loaded {
		fmt.Printf("\n%d. Target: %s\n", i+1, target.Label)
		fmt.Printf("   URL:     %s\n", target.URL)
		if target.Timeout > 0 {
			fmt.Printf("   Timeout: %s\n", target.Timeout)
		} else {
			fmt.Printf("   Timeout: relay default\n")
		}
		if len(target.Events) > 0 {
			fmt.Printf("   Events:  %s\n", strings.Join(target.Events, ", "))
		} else {
			fmt.Printf("   Events:  all\n")
		}
	}

	fmt.Printf("\n✓ All targets are valid!\n")
	os.Exit(0)
}
