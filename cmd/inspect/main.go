// Command inspect dumps the chat and user keyspaces of a badger store as
// tables, for poking at a live data directory during development.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"fluent-messenger/domain"
)

func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	prefix := flag.String("prefix", "chat:", "Prefix to scan (chat: or user:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	switch {
	case strings.HasPrefix(*prefix, "chat:"):
		table.SetHeader([]string{"ID", "Type", "Name", "Participants", "Messages", "Updated", "Invariants"})
	case strings.HasPrefix(*prefix, "user:"):
		table.SetHeader([]string{"ID", "Email", "Name"})
	default:
		log.Fatalf("Unsupported prefix %q", *prefix)
	}
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				row, err := toRow(*prefix, v)
				if err != nil {
					// Log and keep scanning instead of aborting the dump.
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func toRow(prefix string, val []byte) ([]string, error) {
	if strings.HasPrefix(prefix, "user:") {
		var user domain.User
		if err := json.Unmarshal(val, &user); err != nil {
			return nil, err
		}
		return []string{shortID(user.ID), user.Email, user.Name}, nil
	}

	var chat domain.Chat
	if err := json.Unmarshal(val, &chat); err != nil {
		return nil, err
	}
	invariants := "ok"
	if err := chat.CheckInvariants(); err != nil {
		invariants = err.Error()
	}
	return []string{
		shortID(chat.ID),
		string(chat.Type),
		chat.Name,
		fmt.Sprintf("%d", len(chat.ParticipantIDs)),
		fmt.Sprintf("%d", len(chat.Messages)),
		time.UnixMilli(chat.UpdatedAt).Format(time.DateTime),
		invariants,
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
