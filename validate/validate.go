// Command validate checks tictacbot YAML configuration files before
// deployment. It verifies:
//   - YAML structure and known storage backends (memory, sqlite, redis)
//   - Backend-specific requirements (sqlite path, redis address)
//   - Command prefix and expiry settings
//
// Usage: validate [files...]; defaults to config.yaml.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chatplay/tictacbot/game/config"
)

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	if _, err := os.Stat(filePath); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	cfg, err := config.Load(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	// Warn about settings that load fine but are probably mistakes.
	if cfg.Storage.Backend == config.BackendMemory && cfg.Expiry.Enabled {
		result.Errors = append(result.Errors,
			"note: expiry with the memory backend only matters within a single process lifetime")
	}
	if len(cfg.Admins) == 0 {
		result.Errors = append(result.Errors,
			"note: no admins configured, the money-grant command will be unusable")
	}

	return result
}

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		files = []string{"config.yaml"}
	}

	fmt.Println("Validating configuration files...")
	fmt.Println()

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		status := "✓ VALID"
		if !result.Valid {
			status = "✗ INVALID"
			allValid = false
		}
		fmt.Printf("%s %s\n", status, result.File)

		for _, msg := range result.Errors {
			fmt.Printf("    %s\n", msg)
		}
	}

	fmt.Println()
	if !allValid {
		fmt.Println("Validation failed.")
		os.Exit(1)
	}
	fmt.Println("All configuration files are valid.")
}
