package main

import "github.com/crystal-mush/pennport/cmd/pennport/cmd"

func main() {
	cmd.Execute()
}
