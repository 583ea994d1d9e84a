package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/otunazero/hive"
	"github.com/otunazero/hive/refs"
	"github.com/otunazero/hive/utils"
)

var ErrOpenAlready = errors.New("a store is already open")

var HelpOpen = errors.New("open <dir>")

func (repl *REPL) CommandOpen(args []string) (err error) {
	if len(args) != 1 {
		return HelpOpen
	}
	if repl.host != nil {
		return ErrOpenAlready
	}
	repl.host, err = hive.Open(args[0], hive.Options{
		Logger: utils.NewDefaultLogger(slog.LevelWarn),
	})
	if err == nil {
		fmt.Printf("store %s open\n", args[0])
	}
	return
}

func (repl *REPL) CommandClose(args []string) (err error) {
	if repl.host == nil {
		return hive.ErrClosed
	}
	err = repl.host.Close()
	repl.host = nil
	repl.watching = false
	if err == nil {
		fmt.Printf("store closed\n")
	}
	return
}

var HelpBox = errors.New("box <name>")

func (repl *REPL) CommandBox(args []string) (err error) {
	if len(args) != 1 {
		return HelpBox
	}
	if repl.host == nil {
		return hive.ErrClosed
	}
	box, err := repl.host.OpenBox(args[0])
	if err == nil {
		fmt.Printf("box %s open, %d records\n", box.Name(), box.Len())
	}
	return
}

var HelpLazy = errors.New("lazy <name>")

func (repl *REPL) CommandLazy(args []string) (err error) {
	if len(args) != 1 {
		return HelpLazy
	}
	if repl.host == nil {
		return hive.ErrClosed
	}
	box, err := repl.host.OpenLazyBox(args[0])
	if err == nil {
		fmt.Printf("deferred box %s open, %d keys\n", box.Name(), box.Len())
	}
	return
}

var HelpUnbox = errors.New("unbox <name>")

func (repl *REPL) CommandUnbox(args []string) (err error) {
	if len(args) != 1 {
		return HelpUnbox
	}
	if repl.host == nil {
		return hive.ErrClosed
	}
	err = repl.host.CloseBox(args[0])
	if err == nil {
		fmt.Printf("box %s closed\n", args[0])
	}
	return
}

var HelpDrop = errors.New("drop <name>")

func (repl *REPL) CommandDrop(args []string) (err error) {
	if len(args) != 1 {
		return HelpDrop
	}
	if repl.host == nil {
		return hive.ErrClosed
	}
	err = repl.host.DropBox(args[0])
	if err == nil {
		fmt.Printf("box %s dropped\n", args[0])
	}
	return
}

func (repl *REPL) CommandBoxes(args []string) error {
	if repl.host == nil {
		return hive.ErrClosed
	}
	for _, name := range repl.host.Boxes() {
		kind := "lazy"
		if repl.host.Resolve(name) != nil {
			kind = "sync"
		}
		fmt.Printf("%s\t%s\n", kind, name)
	}
	return nil
}

// openBox finds an already open box of either kind.
func (repl *REPL) openBox(name string) (*hive.Box, *hive.LazyBox, error) {
	if repl.host == nil {
		return nil, nil, hive.ErrClosed
	}
	if !repl.host.IsOpen(name) {
		return nil, nil, hive.ErrBoxUnknown
	}
	if box, ok := repl.host.Resolve(name).(*hive.Box); ok {
		return box, nil, nil
	}
	lazy, err := repl.host.OpenLazyBox(name)
	return nil, lazy, err
}

var HelpPut = errors.New("put <box> <key> <value>")

func (repl *REPL) CommandPut(args []string) (err error) {
	if len(args) < 3 {
		return HelpPut
	}
	box, lazy, err := repl.openBox(args[0])
	if err != nil {
		return
	}
	key := args[1]
	value := []byte(strings.Join(args[2:], " "))
	if box != nil {
		_, err = box.Put(key, value)
	} else {
		err = lazy.Put(key, value)
	}
	if err == nil {
		fmt.Printf("%s put\n", key)
	}
	return
}

var HelpAdd = errors.New("add <box> <value>")

func (repl *REPL) CommandAdd(args []string) (err error) {
	if len(args) < 2 {
		return HelpAdd
	}
	box, lazy, err := repl.openBox(args[0])
	if err != nil {
		return
	}
	value := []byte(strings.Join(args[1:], " "))
	var key string
	if box != nil {
		var handle *refs.Handle
		handle, err = box.Add(value)
		if err == nil {
			key = handle.Key()
		}
	} else {
		key, err = lazy.Add(value)
	}
	if err == nil {
		fmt.Printf("%s added\n", key)
	}
	return
}

var HelpGet = errors.New("get <box> <key>")

func (repl *REPL) CommandGet(args []string) (err error) {
	if len(args) != 2 {
		return HelpGet
	}
	box, lazy, err := repl.openBox(args[0])
	if err != nil {
		return
	}
	var value []byte
	if box != nil {
		payload, ok := box.Payload(args[1])
		if !ok {
			return hive.ErrRecordNotFound
		}
		value = payload
	} else {
		value, err = lazy.Fetch(context.Background(), args[1])
		if err != nil {
			return
		}
	}
	fmt.Printf("%s\n", value)
	return
}

var HelpDel = errors.New("del <box> <key>")

func (repl *REPL) CommandDel(args []string) (err error) {
	if len(args) != 2 {
		return HelpDel
	}
	box, lazy, err := repl.openBox(args[0])
	if err != nil {
		return
	}
	if box != nil {
		err = box.Delete(args[1])
	} else {
		err = lazy.Delete(args[1])
	}
	if err == nil {
		fmt.Printf("%s deleted\n", args[1])
	}
	return
}

var HelpKeys = errors.New("keys <box>")

func (repl *REPL) CommandKeys(args []string) (err error) {
	if len(args) != 1 {
		return HelpKeys
	}
	box, lazy, err := repl.openBox(args[0])
	if err != nil {
		return
	}
	if box != nil {
		for key := range box.Keys() {
			fmt.Printf("%s\n", key)
		}
	} else {
		for key := range lazy.Keys() {
			fmt.Printf("%s\n", key)
		}
	}
	return
}

// syncBox finds an already open synchronous box.
func (repl *REPL) syncBox(name string) (*hive.Box, error) {
	box, _, err := repl.openBox(name)
	if err != nil {
		return nil, err
	}
	if box == nil {
		return nil, hive.ErrBoxKind
	}
	return box, nil
}

var HelpLput = errors.New("lput <box> <key> <member-key> ...")

func (repl *REPL) CommandLput(args []string) (err error) {
	if len(args) < 2 {
		return HelpLput
	}
	box, err := repl.syncBox(args[0])
	if err != nil {
		return
	}
	l := refs.NewLazy(repl.host, args[0], args[2:])
	data, err := refs.MarshalTLV(l)
	if err != nil {
		return
	}
	_, err = box.Put(args[1], data)
	if err == nil {
		fmt.Printf("list %s stored, %d keys\n", args[1], len(args)-2)
	}
	return
}

var HelpLcat = errors.New("lcat <box> <key>")

func (repl *REPL) CommandLcat(args []string) (err error) {
	if len(args) != 2 {
		return HelpLcat
	}
	box, err := repl.syncBox(args[0])
	if err != nil {
		return
	}
	l, err := box.GetList(args[1])
	if err != nil {
		return
	}
	keys, err := l.Keys()
	if err != nil {
		return
	}
	items, err := l.Items()
	if err != nil {
		return
	}
	for i, h := range items {
		payload, _ := box.Payload(h.Key())
		fmt.Printf("%d\t%s\t%s\n", i, h.Key(), payload)
	}
	if dead := len(keys) - len(items); dead > 0 {
		fmt.Printf("%d dead keys dropped\n", dead)
	}
	return
}

func (repl *REPL) CommandDump(args []string) error {
	if repl.host == nil {
		return hive.ErrClosed
	}
	repl.host.DumpAll(os.Stdout)
	return nil
}

func (repl *REPL) CommandWatch(args []string) error {
	if repl.host == nil {
		return hive.ErrClosed
	}
	if repl.watching {
		return errors.New("already watching")
	}
	feed := repl.host.AddChangeHose("repl")
	repl.watching = true
	go func() {
		for {
			recs, err := feed.Feed()
			if err != nil {
				return
			}
			for _, rec := range recs {
				lit, box, key, perr := hive.ParseEvent(rec)
				if perr != nil {
					continue
				}
				fmt.Printf("%c %s %s\n", lit, box, key)
			}
		}
	}()
	return nil
}

func (repl *REPL) CommandMute(args []string) error {
	if repl.host == nil {
		return hive.ErrClosed
	}
	repl.watching = false
	return repl.host.RemoveChangeHose("repl")
}

const helpText = `open <dir>                    open or create a store
close                         close the store
box <name>                    open a synchronous box
lazy <name>                   open a deferred box
unbox <name>                  close a box
drop <name>                   drop a closed box from disk
boxes                         list the open boxes
put <box> <key> <value>       store a record
add <box> <value>             store a record under a fresh key
get <box> <key>               read a record
del <box> <key>               delete a record
keys <box>                    list the record keys
lput <box> <key> <member> ... store a cross-reference list
lcat <box> <key>              resolve and print a stored list
watch                         print change events as they happen
mute                          stop printing change events
dump                          print the raw keyspace
exit, quit                    close everything and leave`

func (repl *REPL) CommandHelp(args []string) error {
	fmt.Println(helpText)
	return nil
}
