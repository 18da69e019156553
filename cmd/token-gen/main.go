package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"chama-ledger.backend/internal/config"
	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/pkg/jwt"
	"chama-ledger.backend/pkg/utils"
)

var (
	printfFn   = fmt.Printf
	fatalfFn   = log.Fatalf
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
)

type options struct {
	userID uuid.UUID
	email  string
	role   string
	expiry time.Duration
}

func parseOptions(args []string) (options, error) {
	fs := flag.NewFlagSet("token-gen", flag.ContinueOnError)
	userID := fs.String("user", "", "user id (defaults to a new UUIDv7)")
	email := fs.String("email", "", "email claim")
	role := fs.String("role", string(entities.UserRoleUser), "role claim: USER or ADMIN")
	expiry := fs.Duration("expiry", 0, "token lifetime (defaults to JWT_EXPIRY)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{email: *email, role: *role, expiry: *expiry}
	if *userID == "" {
		opts.userID = utils.GenerateUUIDv7()
	} else {
		id, err := uuid.Parse(*userID)
		if err != nil {
			return options{}, fmt.Errorf("invalid user id: %w", err)
		}
		opts.userID = id
	}
	if opts.role != string(entities.UserRoleUser) && opts.role != string(entities.UserRoleAdmin) {
		return options{}, fmt.Errorf("invalid role: %s (allowed: USER, ADMIN)", opts.role)
	}
	return opts, nil
}

func generateToken(cfg *config.Config, opts options) (string, error) {
	expiry := cfg.JWT.Expiry
	if opts.expiry > 0 {
		expiry = opts.expiry
	}
	return jwt.NewJWTService(cfg.JWT.Secret, expiry).GenerateToken(opts.userID, opts.email, opts.role)
}

func main() {
	_ = loadDotenv()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fatalfFn("Failed to parse flags: %v", err)
		return
	}

	token, err := generateToken(loadCfg(), opts)
	if err != nil {
		fatalfFn("Failed to generate token: %v", err)
		return
	}

	printfFn("USER_ID=%s\n", opts.userID)
	printfFn("ROLE=%s\n", opts.role)
	printfFn("TOKEN=%s\n", token)
}
