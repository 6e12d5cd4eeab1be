package main

import "github.com/kartikmanimuthu/nucleus-platform-sub001/cmd"

func main() {
	cmd.Execute()
}
