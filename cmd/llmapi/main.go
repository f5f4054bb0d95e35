package main

import (
	"os"

	"llmapi/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
