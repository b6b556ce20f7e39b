package main

import "github.com/forPelevin/vdenoise/internal/cli"

func main() {
	cli.Main()
}
