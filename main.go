package main

import (
	"fmt"
	"os"

	"github.com/savepoint/savepoint/backend"
	"github.com/savepoint/savepoint/frontend"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: savepoint <backend|frontend>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "backend":
		backend.RunBackend()
	case "frontend":
		frontend.RunFrontend()
	default:
		fmt.Printf("Unknown mode %q. Usage: savepoint <backend|frontend>\n", os.Args[1])
		os.Exit(1)
	}
}
