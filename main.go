package main

import (
	"rekordboxport/cmd"
)

func main() {
	cmd.Execute()
}
