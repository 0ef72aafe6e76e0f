// Package get provides the get command.
package get

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "get path [localfile]",
	Short: `Download a file from the share.`,
	Long: `
Downloads the file at the given path.  If localfile is not given the
file is written to the current directory under its own name.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, 2, command, args)
		remote := args[0]
		if strings.HasSuffix(remote, "/") {
			cmd.Run(command, func() error {
				return errors.Errorf("%q is a directory", remote)
			})
		}
		local := path.Base(remote)
		if len(args) > 1 {
			local = args[1]
		}
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			in, err := c.Get(context.Background(), davpath.Encode(remote))
			if err != nil {
				return err
			}
			defer func() {
				_ = in.Close()
			}()
			out, err := os.Create(local)
			if err != nil {
				return errors.Wrap(err, "couldn't create local file")
			}
			_, err = io.Copy(out, in)
			if closeErr := out.Close(); err == nil {
				err = closeErr
			}
			return err
		})
	},
}
