package main

import "github.com/nikogura/resume-optimizer/cmd"

func main() {
	cmd.Execute()
}
