package main

import "github.com/masmgr/ccbuild-go/cmd"

func main() {
	cmd.Run()
}
