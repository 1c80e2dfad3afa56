// Command gridclient is the CLI entrypoint: it wires and runs the cobra
// command tree defined in the cmd package.
package main

import "github.com/latticegrid/gridclient/cmd"

func main() {
	cmd.Execute()
}
