package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"fluent-messenger/client"
	"fluent-messenger/domain"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables. The poll intervals
// are part of the protocol contract: the active poll must stay strictly
// more frequent than the global one.
type Config struct {
	ServerURL          string        `env:"CHAT_SERVER_URL,default=http://localhost:8080"`
	Email              string        `env:"CHAT_EMAIL,required=true"`
	Password           string        `env:"CHAT_PASSWORD,required=true"`
	RegisterName       string        `env:"CHAT_REGISTER_NAME"`
	ActivePollInterval time.Duration `env:"ACTIVE_POLL_INTERVAL,default=3s"`
	GlobalPollInterval time.Duration `env:"GLOBAL_POLL_INTERVAL,default=5s"`
	LogLevel           string        `env:"LOG_LEVEL,default=warn"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiClient := client.NewAPIClient(config.ServerURL)

	// Login, registering first when a name is provided and no account exists.
	authResp, err := apiClient.Login(ctx, config.Email, config.Password)
	if err != nil && config.RegisterName != "" && !client.IsTransport(err) {
		authResp, err = apiClient.Register(ctx, config.Email, config.RegisterName, config.Password)
	}
	if err != nil {
		return exitRuntime, fmt.Errorf("authentication failed: %w", err)
	}

	session, err := client.NewSession(apiClient, log, authResp.User,
		config.ActivePollInterval, config.GlobalPollInterval)
	if err != nil {
		return exitConfig, err
	}
	defer session.Logout()

	users, err := session.LoadInitialData(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("initial sync failed: %w", err)
	}
	directory := make(map[string]domain.User, len(users))
	for _, u := range users {
		directory[u.ID] = u
	}

	color.Green.Printf("Logged in as %s <%s>\n", authResp.User.Name, authResp.User.Email)

	// Open the most recently updated chat, as the web client does.
	if chats := session.Chats(); len(chats) > 0 {
		if err := session.SelectChat(ctx, chats[0].ID); err != nil {
			color.Red.Printf("Could not open chat: %v\n", err)
		}
	}

	go renderLoop(ctx, session, directory)

	printHelp()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return exitOK, nil
		case line == "/chats":
			printChats(session)
		case strings.HasPrefix(line, "/open "):
			openChat(ctx, session, strings.TrimPrefix(line, "/open "))
		case strings.HasPrefix(line, "/"):
			printHelp()
		default:
			sendText(ctx, session, line)
		}
	}
	return exitOK, scanner.Err()
}

// renderLoop prints messages as they land in the cache for the selected
// chat. It watches the local cache only; the pollers do the fetching.
func renderLoop(ctx context.Context, session *client.Session, directory map[string]domain.User) {
	printed := make(map[string]int)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			chatID := session.SelectedChatID()
			if chatID == "" {
				continue
			}
			chat, ok := session.Chat(chatID)
			if !ok {
				continue
			}
			for _, msg := range chat.Messages[printed[chatID]:] {
				name := msg.SenderID
				if u, ok := directory[msg.SenderID]; ok {
					name = u.Name
				}
				at := time.UnixMilli(msg.Timestamp).Format(time.TimeOnly)
				color.Cyan.Printf("[%s] %s: ", at, name)
				fmt.Println(msg.Content.Preview())
			}
			printed[chatID] = len(chat.Messages)
		}
	}
}

func printChats(session *client.Session) {
	for i, chat := range session.Chats() {
		name := chat.Name
		if name == "" {
			name = strings.Join(chat.ParticipantIDs, ", ")
		}
		badge := ""
		if unread := session.Unread(chat.ID); unread > 0 {
			badge = color.Red.Sprintf(" (%d unread)", unread)
		}
		selected := " "
		if chat.ID == session.SelectedChatID() {
			selected = "*"
		}
		fmt.Printf("%s %2d. %s%s\n", selected, i+1, name, badge)
	}
}

func openChat(ctx context.Context, session *client.Session, arg string) {
	index, err := strconv.Atoi(strings.TrimSpace(arg))
	chats := session.Chats()
	if err != nil || index < 1 || index > len(chats) {
		color.Red.Println("Usage: /open <chat number from /chats>")
		return
	}
	if err := session.SelectChat(ctx, chats[index-1].ID); err != nil {
		color.Red.Printf("Could not open chat: %v\n", err)
	}
}

func sendText(ctx context.Context, session *client.Session, text string) {
	chatID := session.SelectedChatID()
	if chatID == "" {
		color.Red.Println("No chat selected; use /chats then /open <n>")
		return
	}
	if _, err := session.SendMessage(ctx, chatID, domain.TextContent{Text: text}); err != nil {
		color.Red.Printf("Send failed: %v\n", err)
	}
}

func printHelp() {
	color.Yellow.Println("Commands: /chats (list), /open <n> (switch chat), /quit. Anything else is sent as a message.")
}
