package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"skylinedb/pkg/client"
	"skylinedb/pkg/common"
)

const Prompt = "skyline> "

func main() {
	serverAddr := flag.String("addr", "localhost:9090", "skylinedb TCP Server Address")
	flag.Parse()

	fmt.Printf("skylinedb CLI (Target: %s)\n", *serverAddr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(*serverAddr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. go run ./cmd/server serve).")
		return
	}
	defer cli.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "insert", "add":
			handleInsert(cli, parts)
		case "get":
			handleGet(cli, parts)
		case "del", "rm":
			handleDel(cli, parts)
		case "skyline", "sky":
			handleSkyline(cli)
		case "search":
			handleSearch(cli, parts)
		case "stats":
			handleStats(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func parseFloats(args []string) ([]float64, error) {
	res := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		res[i] = v
	}
	return res, nil
}

func parseID(parts []string, usage string) (common.KeyType, bool) {
	if len(parts) < 2 {
		fmt.Println("Usage: " + usage)
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		fmt.Println("Error: ID must be an integer")
		return 0, false
	}
	return common.KeyType(id), true
}

func handleInsert(cli *client.Client, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: insert <x> <y> [value]")
		return
	}
	xy, err := parseFloats(parts[1:3])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	value := strings.Join(parts[3:], " ")

	start := time.Now()
	id, err := cli.Insert(common.Point{X: xy[0], Y: xy[1]}, []byte(value))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK id=%d (%v)\n", id, duration)
	}
}

func handleGet(cli *client.Client, parts []string) {
	id, ok := parseID(parts, "get <id>")
	if !ok {
		return
	}

	start := time.Now()
	e, err := cli.Get(id)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("%s \"%s\" (%v)\n", e.Point, string(e.Value), duration)
	}
}

func handleDel(cli *client.Client, parts []string) {
	id, ok := parseID(parts, "del <id>")
	if !ok {
		return
	}

	start := time.Now()
	member, err := cli.Delete(id)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else if member {
		fmt.Printf("Deleted skyline point (%v)\n", duration)
	} else {
		fmt.Printf("Deleted (%v)\n", duration)
	}
}

func handleSkyline(cli *client.Client) {
	start := time.Now()
	entries, err := cli.Skyline()
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printEntries(entries, duration)
}

func handleSearch(cli *client.Client, parts []string) {
	if len(parts) < 5 {
		fmt.Println("Usage: search <x1> <y1> <x2> <y2>")
		return
	}
	c, err := parseFloats(parts[1:5])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	start := time.Now()
	entries, err := cli.Search(common.NewRect(c[0], c[1], c[2], c[3]))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printEntries(entries, duration)
}

func handleStats(cli *client.Client) {
	stats, err := cli.Stats()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for k, v := range stats {
		fmt.Printf("  %-18s %v\n", k, v)
	}
}

func printEntries(entries []common.Entry, duration time.Duration) {
	fmt.Printf("Found %d points (%v):\n", len(entries), duration)
	for i, e := range entries {
		if i >= 20 {
			fmt.Printf("... and %d more\n", len(entries)-20)
			break
		}
		fmt.Printf("  [%d] %s %s\n", e.ID, e.Point, string(e.Value))
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  insert <x> <y> [value]     Insert point
  get <id>                   Retrieve point
  del <id>                   Delete point
  skyline                    Current skyline
  search <x1> <y1> <x2> <y2> Points inside a rectangle (inclusive)
  stats                      Server statistics
  exit                       Exit CLI
	`)
}
