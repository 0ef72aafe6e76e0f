// Package rm provides the rm command.
package rm

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "rm path",
	Short: `Delete a file or directory on the share.`,
	Long: `
Deletes the entry at the given path.  Deleting a directory removes its
whole subtree, so there is no separate purge command.  There is no
confirmation prompt; the interactive explorer has one instead.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, 1, command, args)
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			if err := cmd.CheckWritable(); err != nil {
				return err
			}
			return c.Delete(context.Background(), davpath.Encode(args[0]))
		})
	},
}
