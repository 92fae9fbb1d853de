package main

import (
	"os"

	"github.com/taskivo/taskivo/internal/botservice"
)

func main() {
	if err := botservice.Run(); err != nil {
		os.Exit(1)
	}
}
