// Package put provides the put command.
package put

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
	"github.com/davexplorer/davexplorer/uploader"
)

// Globals
var (
	progress = false
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
	cmdFlags := commandDefinition.Flags()
	cmdFlags.BoolVarP(&progress, "progress", "P", progress, "Print per-file progress while uploading")
}

var commandDefinition = &cobra.Command{
	Use:   "put localfile... dir",
	Short: `Upload local files into a directory on the share.`,
	Long: `
Uploads one or more local files into the given directory on the share.
Each file is a separate upload; a failed file does not stop the
others.  File modification times are preserved.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(2, 1e6, command, args)
		locals, dir := args[:len(args)-1], dav.AddSlash(davpath.Encode(args[len(args)-1]))
		c := cmd.NewDav()
		cmd.Run(command, func() error {
			if err := cmd.CheckWritable(); err != nil {
				return err
			}
			up := uploader.New(c)
			var sessions []*uploader.Session
			var handles []*os.File
			var firstErr error
			for _, local := range locals {
				in, err := os.Open(local)
				if err != nil {
					firstErr = errors.Wrap(err, "couldn't open local file")
					continue
				}
				fi, err := in.Stat()
				if err != nil {
					_ = in.Close()
					firstErr = errors.Wrap(err, "couldn't stat local file")
					continue
				}
				s := up.Start(context.Background(), dir, uploader.File{
					Name:    filepath.Base(local),
					Size:    fi.Size(),
					ModTime: fi.ModTime(),
					In:      in,
				}, uploader.Callbacks{
					Progress: func(s *uploader.Session, fraction float64) {
						if progress {
							fmt.Fprintf(os.Stderr, "%s: %3.0f%%\n", s.Name(), fraction*100)
						}
					},
				})
				sessions = append(sessions, s)
				handles = append(handles, in)
			}
			for i, s := range sessions {
				s.Wait()
				_ = handles[i].Close()
				if err := s.Err(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		})
	},
}
