package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell for the configured table",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("get"),
		readline.PcItem("set"),
		readline.PcItem("del"),
		readline.PcItem("has"),
		readline.PcItem("scan"),
		readline.PcItem("len"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", tableName),
		HistoryFile:     filepath.Join(os.TempDir(), "tablekv_history"),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("tablekv shell on table %q. Type help for commands.\n", tableName)

	for {
		line, err := rl.Readline()
		if err != nil {
			// Ctrl+D / Ctrl+C / EOF
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, rest := splitCmdRest(line)
		switch strings.ToLower(cmd) {
		case "get":
			shellGet(rest)
		case "set":
			shellSet(rest)
		case "del":
			shellDel(rest)
		case "has":
			shellHas(rest)
		case "scan":
			shellScan()
		case "len":
			shellLen()
		case "help":
			shellHelp()
		case "exit", "quit":
			return nil
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

// splitCmdRest extracts the command (first token) and the rest of the line (raw).
func splitCmdRest(line string) (cmd, rest string) {
	for i, r := range line {
		if r == ' ' || r == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func shellHelp() {
	fmt.Println(`Commands:
  get <key>          read the value for a key
  set <key> <value>  write a key-value pair
  del <key>          delete a key
  has <key>          check if a key exists
  scan               list all entries in key order
  len                count all entries (full scan)
  help               show this help
  exit               leave the shell`)
}

func shellGet(rest string) {
	if rest == "" {
		fmt.Println("usage: get <key>")
		return
	}
	value, found, err := tableStore.Get([]byte(rest))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if !found {
		fmt.Println("(not found)")
		return
	}
	fmt.Printf("%s\n", value)
}

func shellSet(rest string) {
	key, value := splitCmdRest(rest)
	if key == "" || value == "" {
		fmt.Println("usage: set <key> <value>")
		return
	}
	if err := tableStore.Set([]byte(key), []byte(value)); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("ok")
}

func shellDel(rest string) {
	if rest == "" {
		fmt.Println("usage: del <key>")
		return
	}
	if err := tableStore.Delete([]byte(rest)); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("ok")
}

func shellHas(rest string) {
	if rest == "" {
		fmt.Println("usage: has <key>")
		return
	}
	found, err := tableStore.Has([]byte(rest))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(found)
}

func shellScan() {
	if err := runScan(false, false, 0); err != nil {
		fmt.Println("error:", err)
	}
}

func shellLen() {
	n, err := tableStore.Len()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(n)
}
