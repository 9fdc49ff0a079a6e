package main

import (
	"github.com/prowlqa/prowl/cmd"
)

var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
