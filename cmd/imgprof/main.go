package main

import "github.com/dkorittki/imgprof/cmd"

func main() {
	cmd.Execute()
}
