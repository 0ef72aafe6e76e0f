// Package share provides the share command.
package share

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav/davpath"
	"github.com/davexplorer/davexplorer/share"
)

// Globals
var (
	sharedFor = ""
	lifespan  = 0
	readOnly  = false
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
	cmdFlags := commandDefinition.Flags()
	cmdFlags.StringVarP(&sharedFor, "for", "", sharedFor, "Label of the person the link is for")
	cmdFlags.IntVarP(&lifespan, "lifespan", "", lifespan, "Days before the link expires (0 for the configured default)")
	cmdFlags.BoolVarP(&readOnly, "read-only", "", readOnly, "Issue a download-only link")
}

var commandDefinition = &cobra.Command{
	Use:   "share path",
	Short: `Generate a time-limited public link to a file on the share.`,
	Long: `
Asks the gateway for a share token scoped to the file at the given path
and prints a URL carrying it.  Anyone with the URL can fetch the file
until the token expires; the token itself cannot be revoked from here.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, 1, command, args)
		cfg := cmd.GetConfig()
		c := cmd.NewDav()
		issuer := cmd.NewIssuer()
		days := lifespan
		if days == 0 {
			days = cfg.ShareLifespanDays
		}
		cmd.Run(command, func() error {
			target := c.AbsURL(davpath.Encode(args[0]))
			token, err := issuer.Issue(context.Background(), target, share.Options{
				SharedFor:    sharedFor,
				LifespanDays: days,
				ReadOnly:     readOnly,
			})
			if err != nil {
				return err
			}
			fmt.Println(share.TokenURL(target, token))
			return nil
		})
	},
}
