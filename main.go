// The main package for the webscrap executable.
package main

import (
	"github.com/Paulino-Cristovao/webscrap/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
