package main

import "github.com/Tiliavir/rsg-workblocks/cmd"

func main() {
	cmd.Execute()
}
