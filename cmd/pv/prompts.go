package main

import (
	"fmt"
	"io"
	"os"

	"pv-go/internal/pv"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readContent returns the prompt content from --content, --file or piped
// stdin, and whether any of them supplied it.
func readContent(cmd *cobra.Command) (string, bool, error) {
	if cmd.Flags().Changed("content") {
		content, _ := cmd.Flags().GetString("content")
		return content, true, nil
	}

	file, _ := cmd.Flags().GetString("file")
	switch {
	case file == "-":
		return readAll(os.Stdin)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("reading content: %w", err)
		}
		return string(data), true, nil
	case !term.IsTerminal(int(os.Stdin.Fd())):
		return readAll(os.Stdin)
	default:
		return "", false, nil
	}
}

func readAll(r io.Reader) (string, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("reading content from stdin: %w", err)
	}
	return string(data), len(data) > 0, nil
}

// new command
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Add a prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		category, _ := cmd.Flags().GetString("category")

		content, ok, err := readContent(cmd)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("prompt content is required: pass --content, --file or pipe it on stdin")
		}

		a, err := newApp("AddPrompt")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.AddPrompt(pv.Prompt{
			Title:       title,
			Description: description,
			Content:     content,
			Tags:        tags,
			Category:    category,
		})
		if err != nil {
			return fmt.Errorf("adding prompt: %w", err)
		}

		fmt.Printf("Added %s  %s\n", p.ID, p.Title)
		return nil
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change fields of a prompt (by id or exact title)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		content, hasContent, err := readContent(cmd)
		if err != nil {
			return err
		}
		if !hasContent && flags.NFlag() == 0 {
			return fmt.Errorf("nothing to change: pass at least one of --title, --description, --content, --file, --tags or --category")
		}

		a, err := newApp("EditPrompt")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.EditPrompt(args[0], func(p *pv.Prompt) {
			if flags.Changed("title") {
				p.Title, _ = flags.GetString("title")
			}
			if flags.Changed("description") {
				p.Description, _ = flags.GetString("description")
			}
			if flags.Changed("tags") {
				p.Tags, _ = flags.GetStringSlice("tags")
			}
			if flags.Changed("category") {
				p.Category, _ = flags.GetString("category")
			}
			if hasContent {
				p.Content = content
			}
		})
		if err != nil {
			return fmt.Errorf("editing prompt: %w", err)
		}

		fmt.Printf("Updated %s  %s\n", p.ID, p.Title)
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a prompt (by id or exact title)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemovePrompt")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.RemovePrompt(args[0])
		if err != nil {
			return fmt.Errorf("removing prompt: %w", err)
		}

		fmt.Printf("Removed %s  %s\n", p.ID, p.Title)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a prompt (by id or exact title)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowPrompt")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.ShowPrompt(args[0])
		if err != nil {
			return err
		}

		printPrompt(os.Stdout, p)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetString("tag")
		category, _ := cmd.Flags().GetString("category")
		sortBy, _ := cmd.Flags().GetString("sort")
		format, _ := cmd.Flags().GetString("format")

		a, err := newApp("ListPrompts")
		if err != nil {
			return err
		}
		defer a.Close()

		prompts, err := a.ListPrompts(tag, category, sortBy)
		if err != nil {
			return err
		}

		return printPrompts(os.Stdout, prompts, format)
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find prompts whose title, description or content contains QUERY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		a, err := newApp("Search")
		if err != nil {
			return err
		}
		defer a.Close()

		prompts, err := a.Search(args[0])
		if err != nil {
			return err
		}

		return printPrompts(os.Stdout, prompts, format)
	},
}

// tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Tags")
		if err != nil {
			return err
		}
		defer a.Close()

		tags, err := a.Tags()
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Println(t)
		}
		return nil
	},
}

// categories command
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List every category",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Categories")
		if err != nil {
			return err
		}
		defer a.Close()

		categories, err := a.Categories()
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			fmt.Println("No categories.")
			return nil
		}
		for _, c := range categories {
			fmt.Println(c)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Stats()
		if err != nil {
			return err
		}

		printStats(os.Stdout, st)
		return nil
	},
}
