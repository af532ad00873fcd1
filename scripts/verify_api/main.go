// Smoke test against a running api service: login, list threads,
// fetch a conversation history.
package main

import (
	"context"
	"log"

	"github.com/makini/darasa/pkg/apiclient"
	"github.com/makini/darasa/pkg/model"
)

func main() {
	ctx := context.Background()
	api := apiclient.New("http://localhost:8081")

	token, err := api.Login(ctx, "test_user", "student")
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Token: %s...", token[:10])

	summaries, err := api.Threads(ctx)
	if err != nil {
		log.Fatal("Threads request failed:", err)
	}
	log.Printf("Threads: %d", len(summaries))

	thread := model.NewConversation("test_user", "instructor1")
	log.Printf("Fetching history for %s...", thread.Key())
	msgs, err := api.History(ctx, thread)
	if err != nil {
		log.Fatal("History request failed:", err)
	}
	log.Printf("History: %d messages", len(msgs))
}
