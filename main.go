package main

import "github.com/cxon-build/cxon/cmd"

func main() {
	cmd.Execute()
}
