package main

import "github.com/daladno/upcoming/cmd/upcoming/cmd"

func main() {
	cmd.Execute()
}
