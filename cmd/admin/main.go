// Command admin issues operator tokens for the moderation API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"commentguard/internal/config"
	"commentguard/internal/middleware"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() < 1 {
			fmt.Println("Usage: go run ./cmd/admin token [-ttl 24h] <operator>")
			os.Exit(1)
		}
		issueToken(cfg.JWTSecret, fs.Arg(0), *ttl)

	case "verify":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/admin verify <token>")
			os.Exit(1)
		}
		verifyToken(cfg.JWTSecret, os.Args[2])

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin token [-ttl 24h] <operator>  - Issue an operator token")
	fmt.Println("  go run ./cmd/admin verify <token>               - Check a token and print its operator")
}

func issueToken(secret, operator string, ttl time.Duration) {
	token, err := middleware.IssueOperatorToken(secret, operator, ttl, time.Now())
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func verifyToken(secret, token string) {
	operator, err := middleware.ParseOperatorToken(secret, token)
	if err != nil {
		fmt.Printf("Invalid token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Valid token for operator %q\n", operator)
}
