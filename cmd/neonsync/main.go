// Command neonsync pulls member accounts from a Neon CRM organization
// and writes the roster file consumed by the server's user directory.
// Credentials come from the NEON_ORG and NEON_KEY environment variables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"machine-access-backend/internal/neon"
)

func main() {
	var (
		fieldsPath  = flag.String("fields", "neon_fields.json", "path to the Neon field mapping file")
		outPath     = flag.String("out", "users.json", "path to write the roster file")
		dumpExample = flag.Bool("dump-example-config", false, "print an example field mapping and exit")
	)
	flag.Parse()

	if *dumpExample {
		data, _ := json.MarshalIndent(neon.ExampleFieldMap(), "", "  ")
		os.Stdout.Write(append(data, '\n'))
		return
	}

	orgID := os.Getenv("NEON_ORG")
	apiKey := os.Getenv("NEON_KEY")
	if orgID == "" || apiKey == "" {
		log.Fatal("NEON_ORG and NEON_KEY must be set to your Neon organization ID and API key")
	}

	data, err := os.ReadFile(*fieldsPath)
	if err != nil {
		log.Fatalf("failed to read field mapping: %v", err)
	}
	var fields neon.FieldMap
	if err := json.Unmarshal(data, &fields); err != nil {
		log.Fatalf("failed to parse field mapping: %v", err)
	}
	if err := fields.Validate(); err != nil {
		log.Fatalf("invalid field mapping: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := neon.NewClient(neon.DefaultBaseURL, orgID, apiKey)
	results, err := client.SearchAccounts(ctx, fields)
	if err != nil {
		log.Fatalf("account search failed: %v", err)
	}

	users := neon.BuildRoster(results, fields)
	if err := neon.WriteRoster(*outPath, users); err != nil {
		log.Fatalf("failed to write roster: %v", err)
	}
	log.Printf("wrote %d users to %s (from %d Neon accounts)", len(users), *outPath, len(results))
}
