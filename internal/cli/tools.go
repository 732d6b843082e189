package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/pkg/registry"
)

func (c *CLI) toolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Browse the tool presets",
	}

	cmd.AddCommand(c.toolsListCommand())
	cmd.AddCommand(c.toolsShowCommand())
	cmd.AddCommand(c.toolsPickCommand())

	return cmd
}

// catalog loads the configured tool catalog.
func (c *CLI) catalog() (*registry.Catalog, error) {
	if c.config.ToolsFile == "" {
		return registry.Default(), nil
	}
	return registry.Load(c.config.ToolsFile)
}

func (c *CLI) toolsListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tool presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := c.catalog()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tools.All())
			}
			var rows [][]string
			for _, t := range tools.All() {
				rows = append(rows, []string{"", t.ID, t.Title, string(t.ParserKind), toneSwatch(t.SurfaceTone)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), toolTable(rows).Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func (c *CLI) toolsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one tool preset",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return c.toolIDs(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := c.catalog()
			if err != nil {
				return err
			}
			t, err := tools.Lookup(args[0])
			if err != nil {
				return err
			}
			printTool(t)
			return nil
		},
	}
}

func (c *CLI) toolsPickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pick",
		Short: "Pick a tool preset interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := c.catalog()
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(NewToolListModel(tools.All()), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			m, ok := final.(ToolListModel)
			if !ok || m.Selected == nil {
				printInfo("No tool selected")
				return nil
			}
			printSuccess("Selected %s", StyleHighlight.Render(m.Selected.ID))
			printNextStep("Generate it", fmt.Sprintf("figura generate --tool %s -o %s.svg", m.Selected.ID, m.Selected.ID))
			return nil
		},
	}
}

func (c *CLI) toolIDs() []string {
	tools, err := c.catalog()
	if err != nil {
		return nil
	}
	var ids []string
	for _, t := range tools.All() {
		ids = append(ids, t.ID)
	}
	return ids
}

func printTool(t registry.Tool) {
	fmt.Println(StyleTitle.Render(t.Title))
	printKeyValue("id", t.ID)
	printKeyValue("kind", string(t.ParserKind))
	printKeyValue("tone", toneSwatch(t.SurfaceTone))
	if t.AIPlaceholder != "" {
		printKeyValue("prompt hint", t.AIPlaceholder)
	}
	if t.ManualPlaceholder != "" {
		printKeyValue("input hint", t.ManualPlaceholder)
	}
	if len(t.Chips) > 0 {
		printKeyValue("chips", strings.Join(t.Chips, ", "))
	}
	if t.DefaultInput != "" {
		fmt.Println()
		fmt.Println(listPreviewStyle.Render(strings.TrimRight(t.DefaultInput, "\n")))
	}
}
