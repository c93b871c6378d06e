// Package main is a development utility for generating a test access key pair
// with its bcrypt hash pre-computed. It prints the key id, the raw secret, the
// hash, and a ready-to-run SQL INSERT statement so developers can quickly seed
// a usable access key in a local database without running the full server
// flow. Do not use generated keys in production; create keys through the
// /api/v1/api-clients endpoint so they are tied to a real tenant account.
package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/service-auth/service-auth/internal/auth"
)

func main() {
	keyID, err := auth.AccessKeyID("test")
	if err != nil {
		log.Fatal(err)
	}
	secret, err := auth.AccessKeySecret("test")
	if err != nil {
		log.Fatal(err)
	}
	secretHash, err := auth.HashPassword(secret)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("==========================================================")
	fmt.Println("Access Key Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nAccess Key ID: %s\n", keyID)
	fmt.Printf("\nSecret: %s\n", secret)
	fmt.Printf("\nSecret Hash: %s\n", secretHash)
	fmt.Println("\n==========================================================")
	fmt.Println("SQL Insert:")
	fmt.Println("==========================================================")
	fmt.Printf(`
INSERT INTO service_access_keys
    (id, access_key_id, secret_hash, client_id, environment, rate_limit, is_active, created_at, updated_at)
VALUES
    ('%s', '%s', '%s',
     (SELECT id FROM clients WHERE email_address = 'admin@dev.local'),
     'test', 1000, TRUE, NOW(), NOW());
`, uuid.NewString(), keyID, secretHash)
	fmt.Println("\n==========================================================")
	fmt.Printf("Authorization Header: AccessKey %s\n", keyID)
	fmt.Println("==========================================================")
}
