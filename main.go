package main

import (
	"os"

	"github.com/ghxstship/atlvs/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
