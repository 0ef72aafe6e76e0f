// Package copyfile provides the copyfile command.
package copyfile

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
	Use:   "copyfile src dest",
	Short: `Copy a file or directory on the share.`,
	Long: `
Copies the entry at src to dest on the server, without downloading any
content.  Copying a directory copies its whole subtree.
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
			return c.CopyTo(context.Background(), src, dest)
		})
	},
}
