package main

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/gi8lino/jiraflow/internal/app"
)

//go:embed templates/*.gotmpl
var outputFS embed.FS

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	ctx := context.Background()
	if err := app.Run(ctx, outputFS, Version, Commit, os.Args[1:], os.Stdout, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) // nolint:errcheck
		os.Exit(1)
	}
}
