package main

import (
	"fmt"
	"os"

	"github.com/blockedby/lexscout/internal/catalog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No files to check.")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		c, err := catalog.Load(path)
		if err != nil {
			fmt.Printf("❌ Invalid catalog %s: %v\n", path, err)
			failed = true
			continue
		}

		noLang := 0
		for _, country := range c.CountryList {
			if len(country.Languages) == 0 {
				noLang++
			}
		}
		fmt.Printf("✅ %s is valid (%d countries, %d without response languages)\n", path, len(c.CountryList), noLang)
	}

	if failed {
		os.Exit(1)
	}
}
