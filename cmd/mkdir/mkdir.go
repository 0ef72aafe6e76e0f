// Package mkdir provides the mkdir command.
package mkdir

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "mkdir dir",
	Short: `Make a directory on the share.`,
	Long: `
Creates the directory at the given path.  The parent directory must
already exist; the server decides whether the name is acceptable.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, 1, command, args)
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			if err := cmd.CheckWritable(); err != nil {
				return err
			}
			return c.Mkcol(context.Background(), dav.AddSlash(davpath.Encode(args[0])))
		})
	},
}
