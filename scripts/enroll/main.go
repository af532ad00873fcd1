// Enrolls users into a course space, i.e. writes the membership
// projection the messaging consumer fans summaries out over.
//
// Usage: go run ./scripts/enroll -course go-101 user1 user2 ...
package main

import (
	"flag"
	"log"

	"github.com/makini/darasa/pkg/config"
	"github.com/makini/darasa/pkg/db"
	"github.com/makini/darasa/pkg/model"
)

func main() {
	course := flag.String("course", "", "course id")
	flag.Parse()

	if *course == "" || flag.NArg() == 0 {
		log.Fatal("usage: enroll -course <course-id> <user-id>...")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	key := model.NewSpace(*course).Key()
	for _, userID := range flag.Args() {
		if err := session.Query(
			`INSERT INTO space_members (thread_key, user_id) VALUES (?, ?)`,
			key, userID,
		).Exec(); err != nil {
			log.Fatalf("Failed to enroll %s: %v", userID, err)
		}
		log.Printf("Enrolled %s in %s", userID, key)
	}
}
