package main

import "github.com/nashlang/nash/cmd"

func main() {
	cmd.Execute()
}
