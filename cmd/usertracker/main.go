package main

import (
	"os"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
