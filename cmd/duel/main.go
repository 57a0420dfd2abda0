package main

import "github.com/mcoot/codeduel-go/internal/cli"

func main() {
	cli.Execute()
}
