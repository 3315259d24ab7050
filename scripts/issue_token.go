package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/khoahotran/detasker/internal/config"
	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/auth"
)

// issue_token signs a bearer token for an address, for local testing against the API.
func main() {
	addrFlag := flag.String("address", "", "account address the token is issued for")
	ttl := flag.Duration("ttl", 0, "token lifespan; defaults to auth.token_lifespan")
	flag.Parse()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("JWT_SECRET is not set")
	}

	addr, err := address.Parse(*addrFlag)
	if err != nil {
		log.Fatalf("invalid -address %q: %v", *addrFlag, err)
	}

	lifespan := cfg.Auth.TokenLifespan
	if *ttl > 0 {
		lifespan = *ttl
	}

	token, err := auth.NewJWTService(cfg.Auth.JWTSecret, lifespan).GenerateToken(addr)
	if err != nil {
		log.Fatalf("cannot sign token: %v", err)
	}

	fmt.Printf("issued token for %s (expires %s):\n%s\n", addr, time.Now().Add(lifespan).UTC().Format(time.RFC3339), token)
}
