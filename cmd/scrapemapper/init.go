package main

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/scrapemapper/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/scrapemapper.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new scrapemapper configuration file",
		Long: `Initialize creates a new .scrapemapper configuration file in the current directory.

The generated file includes:
- Default rate, worker and disallow settings
- Commented examples for site-specific cookies and headers
- A site entry for --site, ready for cookies and disallow patterns

Examples:
  # Create .scrapemapper in current directory
  scrapemapper init

  # Add an entry for the site you are going to crawl
  scrapemapper init --site https://example.com

  # Create config file at a specific path
  scrapemapper init -o myconfig.yaml

  # Force overwrite existing file
  scrapemapper init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().StringP("site", "s", "",
		"Root URL to add as a site entry")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	site, err := cmd.Flags().GetString("site")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/scrapemapper.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}
	if site != "" {
		if content, err = addSiteEntry(content, site); err != nil {
			return err
		}
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold cookies and tokens.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	printInitHints(cmd.OutOrStdout(), outputPath, site)
	return nil
}

// sitesPlaceholder is the empty sites map in the template.
var sitesPlaceholder = []byte("sites: {}\n")

// addSiteEntry replaces the empty sites map of the template with an entry
// for root that uses the default rate and no extra disallow patterns.
func addSiteEntry(content []byte, root string) ([]byte, error) {
	u, err := url.Parse(root)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid site %q: expected an http or https root URL", root)
	}
	if !bytes.Contains(content, sitesPlaceholder) {
		return nil, errors.New("config template has no sites section")
	}

	entry := fmt.Sprintf("sites:\n  %s:\n    rate: %d\n    disallow: []\n",
		strconv.Quote(root), config.DefaultRate)
	return bytes.Replace(content, sitesPlaceholder, []byte(entry), 1), nil
}

// printInitHints tells the user what to edit and how to start a crawl.
func printInitHints(out io.Writer, outputPath, site string) {
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  - rate is requests per second shared by all workers (default %d)\n", config.DefaultRate)
	fmt.Fprintln(out, "  - disallow takes robots.txt patterns, e.g. \"/cart/\" or \"/*.pdf$\"")
	fmt.Fprintln(out, "  - cookie and headers reach pages behind a login; both are masked in logs")

	root := site
	if root == "" {
		root = "<root-url>"
	}
	fmt.Fprintln(out, "\nStart a crawl with:")
	if outputPath == configFileName {
		fmt.Fprintf(out, "  scrapemapper %s\n", root)
		return
	}
	fmt.Fprintf(out, "  scrapemapper %s -c %s\n", root, outputPath)
}
