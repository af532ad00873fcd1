package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/makini/darasa/client/cache"
	"github.com/makini/darasa/pkg/apiclient"
	"github.com/makini/darasa/pkg/messenger"
	"github.com/makini/darasa/pkg/model"
	"github.com/makini/darasa/pkg/socket"
)

func cachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".darasa", "history.db")
}

// runChat is the composition root of one messenger session: REST
// history + local cache feed the store, the socket client both pushes
// confirmed messages into it and carries outgoing sends, and the view
// merges everything for the terminal.
func runChat(ctx context.Context, thread model.ThreadID) error {
	api := apiclient.New(apiAddr)
	token, err := api.Login(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	hist, err := cache.Open(cachePath())
	if err != nil {
		return err
	}
	defer hist.Close()

	sock := socket.New(socket.Config{
		GatewayAddr: gatewayAddr,
		Token:       token,
		Thread:      thread,
	})
	if err := sock.Dial(ctx); err != nil {
		return err
	}
	defer sock.Close()

	view := messenger.NewView(messenger.ViewConfig{
		Thread: thread,
		UserID: userID,
		Send:   sock.Send,
		Notify: func(err error) {
			fmt.Printf("\r! failed to send: %v (type /retry to try again)\n> ", err)
		},
	})
	defer view.Close()

	// Cached history shows up instantly; the authoritative fetch
	// replaces it as soon as it lands.
	if cached, err := hist.Thread(ctx, thread); err == nil && len(cached) > 0 {
		view.Store().ReplaceAll(cached)
	}
	go func() {
		msgs, err := api.History(ctx, thread)
		if err != nil {
			fmt.Printf("\r! history fetch failed: %v\n> ", err)
			return
		}
		view.Store().ReplaceAll(msgs)
		hist.PutAll(ctx, msgs)
	}()

	renderCh := make(chan struct{}, 1)
	requestRender := func() {
		select {
		case renderCh <- struct{}{}:
		default:
		}
	}

	// Socket pushes land in the store; the store update wakes the
	// render loop through requestRender.
	go func() {
		for msg := range sock.Messages() {
			switch msg.Type {
			case model.TypeMessage:
				view.Store().Upsert(msg)
				hist.Put(ctx, msg)
			case model.TypePresence:
				fmt.Printf("\r* %s %s\n> ", msg.SenderID, msg.Content)
			}
		}
	}()
	go func() {
		for range view.Store().Updates() {
			requestRender()
		}
	}()

	// Single render loop; whenever the merged tail changes, show it.
	printed := 0
	go func() {
		for range renderCh {
			entries, changed := view.Render()
			if !changed {
				continue
			}
			if len(entries) < printed {
				printed = len(entries)
			}
			for _, e := range entries[printed:] {
				fmt.Printf("\r%s\n> ", formatEntry(e))
			}
			printed = len(entries)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go readInput(ctx, view, requestRender, done)

	fmt.Printf("connected to %s as %s\n> ", thread.Key(), userID)

	select {
	case <-done:
	case <-interrupt:
		fmt.Println("\rinterrupt")
	}

	// Close the socket cleanly and give the server a moment to answer.
	sock.Close()
	select {
	case <-sock.Messages():
	case <-time.After(time.Second):
	}
	return nil
}

func readInput(ctx context.Context, view *messenger.View, requestRender func(), done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()

		switch strings.TrimSpace(text) {
		case "":
			fmt.Print("> ")
			continue
		case "/quit":
			return
		case "/retry":
			go func() {
				for _, p := range view.Overlay().Snapshot() {
					if p.Status == model.StatusError {
						if err := view.Retry(ctx, p.Message.ID); errors.Is(err, messenger.ErrSendInFlight) {
							fmt.Printf("\r! still sending the previous message\n> ")
						}
						break
					}
				}
				requestRender()
			}()
			fmt.Print("> ")
			continue
		}

		// Send never blocks the input loop: the optimistic bubble is
		// visible immediately, and typing stays possible while the
		// network call is in flight.
		go func(content string) {
			requestRender()
			if err := view.Send(ctx, content); errors.Is(err, messenger.ErrSendInFlight) {
				fmt.Printf("\r! still sending the previous message\n> ")
			}
			requestRender()
		}(text)
		fmt.Print("> ")
	}
}

func formatEntry(e messenger.Entry) string {
	who := e.SenderID
	if who == userID {
		who = "you"
	}
	switch e.Status {
	case model.StatusSending:
		return fmt.Sprintf("%s …> %s", who, e.Content)
	case model.StatusError:
		return fmt.Sprintf("%s !> %s (failed to send)", who, e.Content)
	default:
		return fmt.Sprintf("%s> %s", who, e.Content)
	}
}

func runThreads(ctx context.Context) error {
	api := apiclient.New(apiAddr)
	if _, err := api.Login(ctx, userID, role); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	summaries, err := api.Threads(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no threads yet")
		return nil
	}
	for _, s := range summaries {
		unread := ""
		if s.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d unread)", s.UnreadCount)
		}
		fmt.Printf("%-30s %-20s %s%s\n",
			s.ThreadID.Key(), s.Title, s.LastUpdated.Format(time.RFC822), unread)
	}
	return nil
}
