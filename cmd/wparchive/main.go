package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"wparchive"
	"wparchive/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	siteURL := os.Args[1]
	outputDir := "blog_backup"
	if len(os.Args) > 2 {
		outputDir = os.Args[2]
	}

	log := logger.New(zerolog.InfoLevel)

	migrator, err := wparchive.NewMigrator(siteURL, outputDir, wparchive.DefaultMigratorConfig(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	summary, err := migrator.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration complete")
	fmt.Printf("  Discovered: %d posts\n", summary.Discovered)
	fmt.Printf("  Processed:  %d posts\n", summary.Processed)
	fmt.Printf("  Failed:     %d posts\n", summary.Failed)
	fmt.Printf("  Media:      %d images, %d videos\n", summary.Images, summary.Videos)
	fmt.Printf("  Output:     %s\n", outputDir)
}

func printUsage() {
	fmt.Println("wparchive - migrate a WordPress blog into a static markdown archive")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wparchive <site-url> [output-dir]")
	fmt.Println()
	fmt.Println("Arguments:")
	fmt.Println("  site-url    Base URL of the WordPress site (e.g. https://example.com)")
	fmt.Println("  output-dir  Destination directory (default: blog_backup)")
}
