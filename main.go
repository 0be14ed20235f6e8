package main

import (
	"homeops-backend/cmd/cli"
)

// version will be set at build time
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
