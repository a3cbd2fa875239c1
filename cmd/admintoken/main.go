// Command admintoken mints a short-lived ADMIN JWT for the /v1/admin
// endpoints using the server's JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/room-reservation/internal/utils"
)

func main() {
	_ = godotenv.Load()

	subject := flag.String("sub", "ops", "operator name recorded in request logs")
	defTTL := 60
	if v, err := strconv.Atoi(os.Getenv("ADMIN_TOKEN_TTL_MIN")); err == nil && v > 0 {
		defTTL = v
	}
	ttl := flag.Int("ttl", defTTL, "token lifetime in minutes")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(secret, *subject, "ADMIN", *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
