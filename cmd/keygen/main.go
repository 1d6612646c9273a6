package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Mints an HMAC-signed sync key for a calendar-sync collaborator without
// going through the admin API. Pass a collaborator name, or omit it to
// get a generated one.
func main() {
	// Load .env from project root
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")

	name := ""
	if len(os.Args) >= 2 {
		name = os.Args[1]
	} else {
		name = "sync-" + uuid.NewString()[:8]
	}

	secret := os.Getenv("SYNC_MASTER_SECRET")
	if secret == "" {
		fmt.Println("Error: SYNC_MASTER_SECRET not found in environment")
		os.Exit(1)
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(name))
	signature := hex.EncodeToString(h.Sum(nil))

	key := name + "." + signature
	fmt.Printf("Generated sync key for %s:\n%s\n", name, key)
}
