package main

import "github.com/00dev-org/llmpal/cmd"

func main() {
	cmd.Execute()
}
