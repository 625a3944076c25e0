package main

import "github.com/agentic-research/parda/cmd"

func main() {
	cmd.Execute()
}
