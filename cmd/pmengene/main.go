package main

import "github.com/hocestnonsatis/parallel-mengene/cmd/pmengene/cmd"

func main() {
	cmd.Execute()
}
