package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local document cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// fileCache opens the file cache at the configured directory.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	return cache.NewFileCache(c.config.Cache.Dir)
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached documents and exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), fc.Dir())
			return err
		},
	}
}
