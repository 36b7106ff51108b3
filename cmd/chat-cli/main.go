package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"roomchat-backend/client"
)

func main() {
	server := flag.String("server", "http://localhost:8081", "chat server base URL")
	username := flag.String("user", "", "username (empty for anonymous)")
	password := flag.String("pass", "", "password")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	session := client.NewSession()
	api := client.NewAPI(*server, session)

	if *username != "" {
		if err := api.Login(*username, *password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		fmt.Printf("Logged in as %s\n", session.Username())
	} else {
		fmt.Println("Joining anonymously (read-only)")
	}

	consumer := client.NewConsumer(api, client.NewWSSubscriber(*server), session)
	consumer.OnMessage = func(evt client.Event) {
		fmt.Printf("[%s] %s: %s\n", evt.Room, evt.SenderUsername, evt.Content)
	}
	consumer.OnSystem = func(evt client.Event) {
		fmt.Printf("* %s\n", evt.Message)
	}
	consumer.OnError = func(err error) {
		fmt.Printf("! %v\n", err)
	}

	consumer.Enter(*room)
	consumer.StartPresence(3 * time.Second)
	defer consumer.Close()

	// let history land before printing it
	time.Sleep(500 * time.Millisecond)
	for _, evt := range consumer.Messages() {
		fmt.Printf("[%s] %s: %s\n", evt.Room, evt.SenderUsername, evt.Content)
	}

	fmt.Println("Commands: /room <name>, /dm <userId> <text>, /rooms, /online, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/rooms":
			for _, r := range consumer.RefreshRooms() {
				fmt.Printf("  %s\n", r.Name)
			}
		case line == "/online":
			fmt.Printf("online: %d\n", consumer.Online())
		case strings.HasPrefix(line, "/room "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/room "))
			consumer.Enter(name)
			fmt.Printf("Switched to %s\n", name)
		case strings.HasPrefix(line, "/dm "):
			parts := strings.SplitN(strings.TrimPrefix(line, "/dm "), " ", 2)
			if len(parts) != 2 {
				fmt.Println("usage: /dm <userId> <text>")
				continue
			}
			consumer.SetDraft(parts[1])
			if err := consumer.SendDM(parts[0]); err == nil {
				fmt.Println("dm sent")
			}
		default:
			consumer.SetDraft(line)
			consumer.Send()
		}
	}
}
