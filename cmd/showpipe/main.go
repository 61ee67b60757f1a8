package main

import (
	"os"

	"cardscout.app/showpipe/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
