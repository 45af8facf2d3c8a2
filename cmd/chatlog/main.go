// chatlog prints stored conversation transcripts without touching them.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	flag "github.com/spf13/pflag"

	"github.com/stupiduntilnot/omnichat/internal/history"
)

func main() {
	var (
		dbPath       string
		session      string
		limit        int
		jsonOut      bool
		listSessions bool
	)

	flag.StringVar(&dbPath, "db", envOrDefault("OMNICHAT_DB_PATH", "chat_history.db"), "SQLite database path")
	flag.StringVar(&session, "session", envOrDefault("OMNICHAT_SESSION", history.DefaultSession), "conversation session key")
	flag.IntVar(&limit, "limit", 0, "show only the last N turns (0 = all)")
	flag.BoolVar(&jsonOut, "json", false, "output JSON format")
	flag.BoolVar(&listSessions, "sessions", false, "list session keys instead of a transcript")
	flag.Parse()

	store, err := history.OpenReadOnly(dbPath)
	if err != nil {
		log.Fatalf("[chatlog] %v", err)
	}
	defer store.Close()

	if listSessions {
		sessions, err := store.Sessions()
		if err != nil {
			log.Fatalf("[chatlog] %v", err)
		}
		if jsonOut {
			printJSON(sessions)
			return
		}
		for _, s := range sessions {
			fmt.Println(s)
		}
		return
	}

	turns, err := store.Transcript(session, limit)
	if err != nil {
		log.Fatalf("[chatlog] %v", err)
	}
	if jsonOut {
		printJSON(turns)
		return
	}
	if len(turns) == 0 {
		fmt.Printf("no turns stored for session %q\n", session)
		return
	}
	for _, t := range turns {
		ts := time.Unix(t.CreatedAt, 0).Format("2006-01-02 15:04:05")
		fmt.Printf("[%d] %s %-9s %s\n", t.Seq, ts, t.Role+":", t.Content)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("[chatlog] encode output: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
