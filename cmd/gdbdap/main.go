package main

import (
	"github.com/gdbdap/gdbdap/cmd/gdbdap/cmds"
)

func main() {
	cmds.New().Execute()
}
