package main

import (
	"os"

	"github.com/warmline/warmline/server/companionservice"
)

func main() {
	if err := companionservice.Run(); err != nil {
		os.Exit(1)
	}
}
