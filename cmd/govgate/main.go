package main

import "github.com/govgate/govgate/internal/cli"

func main() {
	cli.Execute()
}
