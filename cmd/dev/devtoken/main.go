package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"roombooking/internal/claims"
	"roombooking/pkg/config"
)

func main() {
	var (
		sub    = flag.String("sub", "", "user id placed in the sub claim")
		name   = flag.String("name", "", "display name")
		role   = flag.String("role", "Mahasiswa", "role label: Mahasiswa, Dosen or Admin")
		ttl    = flag.Duration("ttl", time.Hour, "token lifetime")
		secret = flag.String("secret", "", "HS256 secret (defaults to JWT_SECRET)")
	)
	flag.Parse()

	if *sub == "" {
		fmt.Fprintln(os.Stderr, "missing -sub")
		os.Exit(2)
	}
	if claims.RoleFromLabel(*role) == "" {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *secret == "" {
		*secret = cfg.Auth.JWTSecret
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret (or JWT_SECRET in env/.env)")
		os.Exit(2)
	}

	p := claims.Principal{UserID: *sub, DisplayName: *name, Label: *role}
	tok, err := claims.Mint(*secret, p, cfg.Auth.JWTIssuer, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
