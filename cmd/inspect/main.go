package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

const maxDetail = 60

// inspect dumps the keys of a read-only Badger store, e.g. -prefix "msg:" or -prefix "read:".
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "chat:", "Prefix to scan")
	limit := flag.Int("limit", 200, "Maximum number of rows")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Size", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes) && rows < *limit; it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(v []byte) error {
				table.Append([]string{key, fmt.Sprint(len(v)), detail(key, v)})
				return nil
			}); err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d row(s)\n", rows)
}

// detail renders a value by key family: read markers are timestamps, index keys hold plain text, the rest is JSON.
func detail(key string, val []byte) string {
	switch {
	case strings.HasPrefix(key, "read:") && len(val) == 8:
		return time.Unix(0, int64(binary.BigEndian.Uint64(val))).UTC().Format(time.RFC3339Nano)
	case len(val) == 0:
		return "-"
	case json.Valid(val):
		var fields map[string]any
		if err := json.Unmarshal(val, &fields); err == nil {
			for _, name := range []string{"text", "name", "username"} {
				if v, ok := fields[name].(string); ok {
					return truncate(fmt.Sprintf("%s=%q", name, v))
				}
			}
		}
		return truncate(string(val))
	default:
		return truncate(string(val))
	}
}

func truncate(s string) string {
	if len(s) <= maxDetail {
		return s
	}
	return s[:maxDetail] + "..."
}
