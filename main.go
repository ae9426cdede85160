package main

import (
	"github.com/octanelabs/bolt/cmd"
)

func main() {
	cmd.Execute()
}
