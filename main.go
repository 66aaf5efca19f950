package main

import (
	"fmt"
	"os"

	"github.com/swhsiang/comfyui-tutorial-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
