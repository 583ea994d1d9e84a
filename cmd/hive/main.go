package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"

	"github.com/otunazero/hive"
)

// REPL per se.
type REPL struct {
	host     *hive.Hive
	rl       *readline.Instance
	watching bool
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("open"),
	readline.PcItem("close"),

	readline.PcItem("box"),
	readline.PcItem("lazy"),
	readline.PcItem("unbox"),
	readline.PcItem("drop"),
	readline.PcItem("boxes"),

	readline.PcItem("put"),
	readline.PcItem("add"),
	readline.PcItem("get"),
	readline.PcItem("del"),
	readline.PcItem("keys"),

	readline.PcItem("lput"),
	readline.PcItem("lcat"),

	readline.PcItem("watch"),
	readline.PcItem("mute"),
	readline.PcItem("dump"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".hive_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

func (repl *REPL) REPL() (err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	// store open/close
	case "open":
		err = repl.CommandOpen(args)
	case "close":
		err = repl.CommandClose(args)
	case "exit", "quit":
		if repl.host != nil {
			err = repl.CommandClose(args)
		}
		if err == nil {
			err = io.EOF
		}
	// ----- box handling -----
	case "box":
		err = repl.CommandBox(args)
	case "lazy":
		err = repl.CommandLazy(args)
	case "unbox":
		err = repl.CommandUnbox(args)
	case "drop":
		err = repl.CommandDrop(args)
	case "boxes", "ls":
		err = repl.CommandBoxes(args)
	// ----- records -----
	case "put":
		err = repl.CommandPut(args)
	case "add":
		err = repl.CommandAdd(args)
	case "get", "cat":
		err = repl.CommandGet(args)
	case "del":
		err = repl.CommandDel(args)
	case "keys":
		err = repl.CommandKeys(args)
	// ----- cross-reference lists -----
	case "lput":
		err = repl.CommandLput(args)
	case "lcat":
		err = repl.CommandLcat(args)
	// ----- change events -----
	case "watch":
		err = repl.CommandWatch(args)
	case "mute":
		err = repl.CommandMute(args)
	// ----- debug -----
	case "dump":
		err = repl.CommandDump(args)
	case "help":
		err = repl.CommandHelp(args)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return
}

func main() {
	repl := REPL{}

	err := repl.Open()

	if len(os.Args) > 1 {
		err = repl.CommandOpen(os.Args[1:])
	}

	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
			err = nil
		}
		err = repl.REPL()
	}

	if repl.host != nil {
		_ = repl.host.Close()
	}
	_ = repl.Close()
}
