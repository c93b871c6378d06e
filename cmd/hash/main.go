// Package main is a utility for generating bcrypt hashes of secrets.
// The service stores only bcrypt hashes of passwords and access key secrets,
// never the raw values, so this tool is used when manually seeding or
// verifying credential records in the database without running the full
// server. Running it locally produces a hash that can be inserted directly
// into the clients or service_access_keys tables.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/service-auth/service-auth/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <secret>\n", os.Args[0])
		os.Exit(2)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
