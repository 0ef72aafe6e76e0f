// Package all imports all the commands
package all

import (
	// Active commands
	_ "github.com/davexplorer/davexplorer/cmd"
	_ "github.com/davexplorer/davexplorer/cmd/cat"
	_ "github.com/davexplorer/davexplorer/cmd/copyfile"
	_ "github.com/davexplorer/davexplorer/cmd/explore"
	_ "github.com/davexplorer/davexplorer/cmd/get"
	_ "github.com/davexplorer/davexplorer/cmd/ls"
	_ "github.com/davexplorer/davexplorer/cmd/mkdir"
	_ "github.com/davexplorer/davexplorer/cmd/move"
	_ "github.com/davexplorer/davexplorer/cmd/put"
	_ "github.com/davexplorer/davexplorer/cmd/rm"
	_ "github.com/davexplorer/davexplorer/cmd/share"
)
