package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"cardscout.app/showpipe/internal/registry"
)

func runSources(args []string) int {
	if len(args) == 0 {
		printSourcesUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printSourcesUsage()
		return 0
	case "validate":
		return runSourcesValidate(args[1:])
	case "list":
		return runSourcesList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown sources action: %s\n\n", args[0])
		printSourcesUsage()
		return 2
	}
}

func runSourcesValidate(args []string) int {
	fs := flag.NewFlagSet("sources validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file := fs.String("file", "sources.json", "Path to the source registry file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	reg, err := registry.LoadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		return 1
	}

	fmt.Printf("ok: %d sources (%d enabled)\n", len(reg.Sources), len(reg.Enabled()))
	return 0
}

func runSourcesList(args []string) int {
	fs := flag.NewFlagSet("sources list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file := fs.String("file", "sources.json", "Path to the source registry file")
	enabledOnly := fs.Bool("enabled-only", false, "List only enabled sources")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	reg, err := registry.LoadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sources: %v\n", err)
		return 1
	}

	sources := reg.Sources
	if *enabledOnly {
		sources = reg.Enabled()
	}

	for _, source := range sources {
		state := "enabled"
		if !source.IsEnabled() {
			state = "disabled"
		}
		line := fmt.Sprintf("%s\t%s", state, source.Address)
		if source.PriorityScore > 0 {
			line += fmt.Sprintf("\tpriority=%.1f", source.PriorityScore)
		}
		if strings.TrimSpace(source.Notes) != "" {
			line += "\t" + strings.TrimSpace(source.Notes)
		}
		fmt.Println(line)
	}
	return 0
}

func printSourcesUsage() {
	fmt.Fprintln(os.Stderr, "showpipe sources")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  showpipe sources <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  validate   Validate a registry file against the schema")
	fmt.Fprintln(os.Stderr, "  list       Print registry entries")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  --file <path>      Registry file (default: sources.json)")
	fmt.Fprintln(os.Stderr, "  --enabled-only     list: skip disabled sources")
}
