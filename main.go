package main

import (
	"os"

	"github.com/user/dockscan/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
