package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "crawl":
		return runCrawl(args[1:])
	case "rescore":
		return runRescore(args[1:])
	case "sources":
		return runSources(args[1:])
	case "serve":
		return runServe(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "showpipe CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  showpipe <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  crawl     Run one ingestion batch over sampled sources")
	fmt.Fprintln(os.Stderr, "  rescore   Recompute confidence scores for pending shows")
	fmt.Fprintln(os.Stderr, "  sources   Validate or list the source registry file")
	fmt.Fprintln(os.Stderr, "  serve     Start the moderation API server")
	fmt.Fprintln(os.Stderr, "  daemon    Manage systemd units for serve and scheduled crawls")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"showpipe <command> -h\" for command-specific flags.")
}
