// Command clawcityctl is an interactive REPL client for ClawCity
// agents, grounded on tools/console.go's login-loop/command-loop shape.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

var (
	serverURL  = "http://localhost:8080"
	agentName  string
	agentID    int64
	apiKey     string
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

type registerResponse struct {
	AgentID int64  `json:"agentId"`
	APIKey  string `json:"apiKey"`
}

type actionResult struct {
	OK      bool           `json:"ok"`
	Tick    uint64         `json:"tick"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Error   string         `json:"error"`
}

func main() {
	if url := os.Getenv("CLAWCITY_SERVER"); url != "" {
		serverURL = url
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("ClawCity Agent Console")
	fmt.Printf("Target server: %s\n", serverURL)

	for {
		if !loginLoop(reader) {
			return
		}

		fmt.Println("\n--- CONNECTED ---")
		fmt.Printf("Agent %q (id %d) online.\n", agentName, agentID)
		fmt.Println("Commands: state, act <ACTION> <json-args>, events, help, logout, quit")

		loggedOut := false
		for !loggedOut {
			fmt.Printf("[%s]> ", agentName)
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			parts := strings.SplitN(text, " ", 2)
			cmd := parts[0]

			switch cmd {
			case "state":
				doState()
			case "act":
				if len(parts) < 2 {
					fmt.Println("Usage: act <ACTION> [json-args]")
					continue
				}
				doAct(parts[1])
			case "events":
				doEvents()
			case "help":
				printHelp()
			case "logout":
				fmt.Println("Logging out...")
				loggedOut = true
				agentName, apiKey = "", ""
				agentID = 0
			case "quit", "exit":
				fmt.Println("Disconnecting...")
				os.Exit(0)
			default:
				fmt.Println("Unknown command. Type 'help' for options.")
			}
		}
	}
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  state                      - fetch your agent plus nearby jobs/businesses")
	fmt.Println("  act MOVE {\"toZone\":\"market\"} - submit an action")
	fmt.Println("  events                     - list your recent events")
	fmt.Println("  logout                     - return to registration")
	fmt.Println("  quit                       - disconnect")
}

func loginLoop(reader *bufio.Reader) bool {
	for {
		fmt.Println("\n--- REGISTER AGENT ---")
		fmt.Print("Agent name (or 'quit'): ")
		name, _ := reader.ReadString('\n')
		name = strings.TrimSpace(name)
		if name == "quit" || name == "exit" {
			return false
		}
		if name == "" {
			continue
		}
		fmt.Print("Registering... ")
		if doRegister(name) {
			agentName = name
			return true
		}
		fmt.Println("Registration failed, try another name.")
	}
}

func doRegister(name string) bool {
	payload := map[string]string{"name": name}
	data, _ := json.Marshal(payload)

	resp, err := httpClient.Post(serverURL+"/agent/register", "application/json", bytes.NewBuffer(data))
	if err != nil {
		fmt.Printf("Connection error: %v\n", err)
		return false
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Server error: %s\n", string(body))
		return false
	}

	var r registerResponse
	if err := json.Unmarshal(body, &r); err != nil {
		fmt.Printf("Protocol error: %v\n", err)
		return false
	}
	agentID = r.AgentID
	apiKey = r.APIKey
	fmt.Printf("Success! Agent id %d. Keep this key, it is shown once: %s\n", agentID, apiKey)
	return true
}

func authedRequest(method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(method, serverURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	return httpClient.Do(req)
}

func doState() {
	resp, err := authedRequest(http.MethodGet, "/agent/state", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var state map[string]any
	if err := json.Unmarshal(body, &state); err != nil {
		fmt.Printf("Protocol error: %v\n", err)
		return
	}
	agent, _ := state["agent"].(map[string]any)
	cash, _ := agent["Cash"].(float64)
	fmt.Printf("Tick %v | Cash %s | Zone %v | Status %v\n",
		state["tick"], humanize.Comma(int64(cash)), agent["LocationZoneID"], agent["Status"])
}

func doAct(rest string) {
	parts := strings.SplitN(rest, " ", 2)
	actionName := parts[0]
	args := map[string]any{}
	if len(parts) > 1 {
		if err := json.Unmarshal([]byte(parts[1]), &args); err != nil {
			fmt.Printf("Bad args JSON: %v\n", err)
			return
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"requestId": uuid.NewString(),
		"action":    actionName,
		"args":      args,
	})

	resp, err := authedRequest(http.MethodPost, "/agent/act", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var result actionResult
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Protocol error: %v\n", err)
		return
	}
	if result.OK {
		fmt.Printf("OK (tick %d): %s %v\n", result.Tick, result.Message, result.Data)
	} else {
		fmt.Printf("FAILED (tick %d): %s %s\n", result.Tick, result.Error, result.Message)
	}
}

func doEvents() {
	resp, err := authedRequest(http.MethodGet, "/agent/events?limit=20", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var payload struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		fmt.Printf("Protocol error: %v\n", err)
		return
	}
	for _, e := range payload.Events {
		fmt.Printf("tick=%v type=%v\n", e["Tick"], e["Type"])
	}
}
