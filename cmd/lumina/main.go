package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/luminahq/lumina/internal/errdef"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("lumina: %v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad input or settings and 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errdef.Is(err, errdef.CodeValidation), errdef.Is(err, errdef.CodeConfig):
		return 2
	}
	return 1
}
