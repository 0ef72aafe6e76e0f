// Package cat provides the cat command.
package cat

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "cat path",
	Short: `Write the contents of a file on the share to stdout.`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, 1, command, args)
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			in, err := c.Get(context.Background(), davpath.Encode(args[0]))
			if err != nil {
				return err
			}
			defer func() {
				_ = in.Close()
			}()
			_, err = io.Copy(os.Stdout, in)
			return err
		})
	},
}
