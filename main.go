package main

import "github.com/xrsl/reachout/cmd"

func main() {
	cmd.Execute()
}
