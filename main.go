package main

import "github.com/nikogura/resume-intake/cmd"

func main() {
	cmd.Execute()
}
