package main

import "github.com/mcoot/quizcore/internal/cli"

func main() {
	cli.Execute()
}
