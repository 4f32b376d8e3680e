package main

import "github.com/hackingbutlegal/lockbox/cmd"

func main() {
	cmd.Execute()
}
