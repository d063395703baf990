package main

import (
	"dmscreen/cmd"
)

func main() {
	cmd.Execute()
}
