package main

import (
	"docsync/cmd/client/cmd"
)

func main() {
	cmd.Execute()
}
