package main

import (
	"fmt"
	"os"

	"pv-go/internal/app"
	"pv-go/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a PVApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddPrompt", "Sync").
func newApp(operation string) (*app.PVApp, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("reading config (run 'pv config init' first): %w", err)
	}

	a, err := app.NewPVApp(cfg, paths.ConfigFile, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "pv",
	Short:        "Prompt vault: a local prompt library with a remote mirror",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteType, _ := cmd.Flags().GetString("remote")

		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(paths.DataDir)
		cfg.Remote.Type = remoteType

		if err := config.Init(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigFile)
		fmt.Printf("Base Dir: %s\n", paths.DataDir)
		if remoteType != "" {
			fmt.Printf("Remote:   %s (edit the [remote] section to finish setup)\n", remoteType)
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigFile)
		printConfig(os.Stdout, cfg)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair that encrypts the remote document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("InitKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := app.ReadNewPassphrase(app.ReadPassphrase)
		if err != nil {
			return err
		}

		publicKey, err := a.InitKeys(passphrase)
		if err != nil {
			return err
		}

		fmt.Println("Encryption keys created.")
		if publicKey != "" {
			fmt.Printf("Public key: %s\n", publicKey)
		}
		fmt.Println("Keep the passphrase safe: the remote document cannot be read without it.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("remote", "", "Remote type: gist, git, s3, gcs or filesystem")
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// prompt commands
	for _, c := range []*cobra.Command{newCmd, editCmd} {
		c.Flags().StringP("title", "t", "", "Prompt title")
		c.Flags().StringP("description", "d", "", "Short description")
		c.Flags().StringP("content", "c", "", "Prompt content")
		c.Flags().StringP("file", "f", "", "Read content from a file (- for stdin)")
		c.Flags().StringSlice("tags", nil, "Comma-separated tags")
		c.Flags().String("category", "", "Category")
		c.MarkFlagsMutuallyExclusive("content", "file")
	}
	newCmd.MarkFlagRequired("title")

	listCmd.Flags().String("tag", "", "Only prompts with this tag")
	listCmd.Flags().String("category", "", "Only prompts in this category")
	listCmd.Flags().String("sort", "", "Sort by recency, title or updated (default from config)")
	listCmd.Flags().String("format", "simple", "Output format: simple, detailed or json")

	searchCmd.Flags().String("format", "simple", "Output format: simple, detailed or json")

	// sync commands
	syncCmd.Flags().Bool("upload", false, "Only push local changes")
	syncCmd.Flags().Bool("download", false, "Only pull remote changes")
	syncCmd.MarkFlagsMutuallyExclusive("upload", "download")
	syncCmd.Flags().Bool("force", false, "Settle same-timestamp conflicts instead of aborting")
	syncCmd.Flags().String("prefer", "", "Side that wins forced conflicts: local or remote")
	syncCmd.Flags().Bool("dry-run", false, "Show what would change without writing")

	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of sync cycles to show")

	exportCmd.Flags().String("format", "", "toml, json, yaml, markdown or html (default from file extension)")
	importCmd.Flags().String("format", "", "toml, json or yaml (default from file extension)")
	importCmd.Flags().Bool("force", false, "Let imported prompts win same-timestamp conflicts")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
