package main

import "github.com/atikulmunna/dlcount/internal/cmd"

func main() {
	cmd.Execute()
}
