// Browse and manage the files of a WebDAV share behind a self-hosted
// gateway.
package main

import (
	"github.com/davexplorer/davexplorer/cmd"
	_ "github.com/davexplorer/davexplorer/cmd/all" // import all commands
)

func main() {
	cmd.Main()
}
