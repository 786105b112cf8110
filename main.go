package main

import (
	"cacdb/cmd"
)

func main() {
	cmd.Execute()
}
