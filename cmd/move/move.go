// Package move provides the move command.
package move

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "move src dest",
	Short: `Move or rename a file or directory on the share.`,
	Long: `
Moves the entry at src to dest on the server, without downloading any
content.  Renaming is moving within the same directory.  Moving a
directory moves its whole subtree.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(2, 2, command, args)
		src, dest := davpath.Encode(args[0]), davpath.Encode(args[1])
		if strings.HasSuffix(src, "/") {
			dest = dav.AddSlash(dest)
		}
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			if err := cmd.CheckWritable(); err != nil {
				return err
			}
			return c.Move(context.Background(), src, dest)
		})
	},
}
