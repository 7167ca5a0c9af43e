package main

import "github.com/invopipe/invopipe/cmd/invopipe/cmd"

func main() {
	cmd.Execute()
}
