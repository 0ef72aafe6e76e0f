// Package ls provides the ls command.
package ls

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

// Globals
var (
	long = false
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
	cmdFlags := commandDefinition.Flags()
	cmdFlags.BoolVarP(&long, "long", "l", long, "Show type, size and modification time as well")
}

var commandDefinition = &cobra.Command{
	Use:   "ls [dir]",
	Short: `List the entries of a directory on the share.`,
	Long: `
Lists the entries of the given directory, directories first, then files
in case-insensitive name order.  Directory paths end with "/".  With no
argument the root of the share is listed.

Use the --long flag to also show the detected type, a human readable
size and the modification time of each entry.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(0, 1, command, args)
		dir := "/"
		if len(args) > 0 {
			dir = dav.AddSlash(davpath.Encode(args[0]))
		}
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			entries, err := c.List(context.Background(), dir)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if long {
					size := "-"
					if !e.IsDir {
						size = dav.HumanSize(e.Size)
					}
					fmt.Fprintf(os.Stdout, "%-10s %10s %s %s\n", e.Type, size, e.LastModified.Format("2006-01-02 15:04:05"), e.Name)
				} else {
					name := e.Name
					if e.IsDir {
						name += "/"
					}
					fmt.Fprintln(os.Stdout, name)
				}
			}
			return nil
		})
	},
}
