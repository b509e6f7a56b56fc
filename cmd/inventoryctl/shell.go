package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-shellwords"
	"golang.org/x/term"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/dashboard"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

const shellUsage = `Inventory shell.

Usage:
    inventoryctl list
    inventoryctl create --name=<name> --sku=<sku> --stock=<stock> --price=<price> --category=<category>
    inventoryctl update <id> [--name=<name>] [--sku=<sku>] [--stock=<stock>] [--price=<price>] [--category=<category>]
    inventoryctl delete <id>
    inventoryctl categories
    inventoryctl refresh
    inventoryctl exit

Options:
    -h --help                 Show this screen.
    --name=<name>             Product name.
    --sku=<sku>               Product SKU.
    --stock=<stock>           Units in stock, a whole number.
    --price=<price>           Unit price, e.g. 12.50.
    --category=<category>     One of the categories listed by 'categories'.
`

// shell keeps one list subscription open and prints the table every time a
// new settled snapshot arrives, e.g. after a mutation's re-fetch.
func (a *app) shell() {
	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(a.out, format, args...)
	}

	var lastShown uint64
	unsubscribe := a.client.ListQuery().Subscribe(func(s dashboard.State[[]model.Product]) {
		if s.IsLoading() || s.Stale || s.Fetching {
			return
		}
		outMu.Lock()
		defer outMu.Unlock()
		if s.Revision <= lastShown {
			return
		}
		lastShown = s.Revision
		fmt.Fprintln(a.out)
		renderList(a.out, dashboard.NewListView(s))
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docopt.DefaultParser.HelpHandler = func(err error, usage string) {
		if err == nil {
			printf("%s\n", usage)
		} else {
			printf("Invalid command or arguments. Use '--help' for usage.\n")
		}
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if err != nil {
				if err != io.EOF {
					printf("read: %v\n", err)
				}
				return
			}
		}
	}()

	for {
		if interactive {
			printf("> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		args, err := shellwords.Parse(line)
		if err != nil {
			docopt.DefaultParser.HelpHandler(err, shellUsage)
			continue
		}
		opts, err := docopt.ParseArgs(shellUsage, args, InventoryCtlVersion)
		if err != nil {
			continue
		}

		if exit_, _ := opts.Bool("exit"); exit_ {
			return
		} else if refresh_, _ := opts.Bool("refresh"); refresh_ {
			a.client.ListQuery().Refetch()
			continue
		}
		// Command output is buffered so a list re-render never lands in
		// the middle of it.
		var buf bytes.Buffer
		cmd := *a
		cmd.out = &buf
		err = cmd.runShell(ctx, opts)
		outMu.Lock()
		buf.WriteTo(a.out)
		if err != nil {
			fmt.Fprintf(a.out, "%v\n", err)
		}
		outMu.Unlock()
	}
}

// runShell is run without the post-save redirect wait. The live list
// subscription re-renders once the invalidation re-fetch lands.
func (a *app) runShell(ctx context.Context, opts docopt.Opts) error {
	if create_, _ := opts.Bool("create"); create_ {
		var form model.ProductForm
		applyForm(&form, opts)
		id, err := dashboard.SubmitCreate(ctx, a.client.CreateMutation(), form)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (id %d)\n", dashboard.MsgCreated, id)
		return nil
	} else if update_, _ := opts.Bool("update"); update_ {
		id, err := opts.Int("<id>")
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		form, err := a.editForm(ctx, id)
		if err != nil {
			return err
		}
		applyForm(&form, opts)
		if err := dashboard.SubmitUpdate(ctx, a.client.UpdateMutation(), id, form); err != nil {
			return err
		}
		fmt.Fprintln(a.out, dashboard.MsgUpdated)
		return nil
	} else if delete_, _ := opts.Bool("delete"); delete_ {
		id, err := opts.Int("<id>")
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		if _, err := a.client.DeleteMutation().Unwrap(ctx, id); err != nil {
			return fmt.Errorf("%s", dashboard.FailureMessage(err, dashboard.MsgDeleteFailed))
		}
		return nil
	}
	return a.run(ctx, opts)
}
