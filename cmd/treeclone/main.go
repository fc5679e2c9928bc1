package main

import "github.com/jvs-project/treeclone/internal/cli"

func main() {
	cli.Execute()
}
