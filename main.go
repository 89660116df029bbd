package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/ezerfernandes/mdextract/internal/cmd"
)

func main() {
	cmd.Execute(os.Args[1:], os.Stdout, os.Stderr)
}
