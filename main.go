package main

import "github.com/gianix81/payAnalyst/cmd"

func main() {
	cmd.Execute()
}
