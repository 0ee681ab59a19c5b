package main

import "github.com/kahrendsen/andersgo/cmd/andersgo/cmd"

func main() {
	cmd.Execute()
}
