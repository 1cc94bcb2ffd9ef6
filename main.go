package main

import (
	"github.com/Dfam-consortium/RepeatModeler-sub000/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
