package main

import "github.com/qpcr-lab/rq-analyzer/cmd"

func main() {
	cmd.Execute()
}
