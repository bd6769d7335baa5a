package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "clausemap server URL")
	user := flag.String("user", "cli-user", "User name for lookups")
	flag.Parse()

	fmt.Println("clausemap CLI")
	fmt.Printf("Server: %s | User: %s\n", *server, *user)
	fmt.Println("Type a disclosure question, or a /command (/help lists them).")
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("---")

	fetchFrameworks(*server)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}

		sendMessage(*server, *user, input)
	}
}

func fetchFrameworks(server string) {
	resp, err := http.Get(server + "/api/frameworks")
	if err != nil {
		printError("Failed to fetch frameworks: %v", err)
		return
	}
	defer resp.Body.Close()

	var frameworks []struct {
		Name    string `json:"name"`
		Clauses int    `json:"clauses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&frameworks); err != nil {
		printError("Failed to parse frameworks: %v", err)
		return
	}
	if len(frameworks) == 0 {
		fmt.Println("No frameworks loaded on the server.")
		return
	}
	fmt.Println("Loaded frameworks:")
	for _, f := range frameworks {
		fmt.Printf("  %s (%d clauses)\n", f.Name, f.Clauses)
	}
}

func sendMessage(server, user, content string) {
	payload, _ := json.Marshal(map[string]string{
		"user_id":   user,
		"user_name": user,
		"content":   content,
	})

	client := &http.Client{Timeout: 35 * time.Second}
	resp, err := client.Post(server+"/api/gateway/rest/message",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		printError("Server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return
	}

	var reply struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		printError("Failed to parse reply: %v", err)
		return
	}
	fmt.Println(reply.Content)
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
