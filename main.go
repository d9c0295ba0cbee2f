package main

import "github.com/papapumpkin/larder/cmd"

func main() {
	cmd.Execute()
}
