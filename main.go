// The main package for the gua4destiny executable.
package main

import (
	"github.com/neoluxis/gua4destiny/cmd"
)

func main() {
	cmd.Execute()
}
