// Package main is the inventory command line: one-shot product commands and
// an interactive shell that keeps the product list live.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/docopt/docopt-go"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/config"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/dashboard"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/queue"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/store"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/transport"
)

const InventoryCtlVersion = "0.1.0"

const usage = `Inventory control.

Usage:
    inventoryctl list [--api_url=<api_url>]
    inventoryctl create --name=<name> --sku=<sku> --stock=<stock> --price=<price> --category=<category> [--api_url=<api_url>]
    inventoryctl update <id> [--name=<name>] [--sku=<sku>] [--stock=<stock>] [--price=<price>] [--category=<category>] [--api_url=<api_url>]
    inventoryctl delete <id> [--api_url=<api_url>]
    inventoryctl categories
    inventoryctl shell [--api_url=<api_url>]

Options:
    -h --help                 Show this screen.
    --version                 Show version.
    --api_url=<api_url>       Inventory API root. Overrides API_BASE_URL.
    --name=<name>             Product name.
    --sku=<sku>               Product SKU.
    --stock=<stock>           Units in stock, a whole number.
    --price=<price>           Unit price, e.g. 12.50.
    --category=<category>     One of the categories listed by 'inventoryctl categories'.
`

type app struct {
	cfg    config.Config
	client *dashboard.Client
	st     *store.Store
	mgr    *queue.Manager
	cancel context.CancelFunc
	out    io.Writer
}

func newApp(cfg config.Config, out io.Writer) *app {
	a := api.New(transport.New(cfg.APIBaseURL, transport.WithTimeout(cfg.HTTPTimeout)))
	st := store.New(a, store.WithKeepUnusedFor(cfg.KeepUnusedFor))
	mgr := queue.NewManager(cfg, queue.New(128), st)
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	st.SetScheduler(mgr)
	return &app{
		cfg:    cfg,
		client: dashboard.New(a, st, dashboard.WithRedirectDelay(cfg.RedirectDelay)),
		st:     st,
		mgr:    mgr,
		cancel: cancel,
		out:    out,
	}
}

func (a *app) close() {
	a.mgr.CloseIntake()
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if !a.mgr.DrainUntil(ctx) {
		obs.Logger.Warn("shutdown_drain_timeout")
	}
	a.cancel()
	a.mgr.Stop()
	a.st.Close()
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], InventoryCtlVersion)
	if err != nil {
		panic(err)
	}

	cfg := config.Load()
	if apiURL, err := opts.String("--api_url"); err == nil && apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	obs.InitLoggerTo(os.Stderr, cfg.LogLevel)

	if categories_, _ := opts.Bool("categories"); categories_ {
		renderCategories(os.Stdout)
		return
	}

	a := newApp(cfg, os.Stdout)
	defer a.close()

	if shell_, _ := opts.Bool("shell"); shell_ {
		a.shell()
		return
	}
	if err := a.run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.close()
		os.Exit(1)
	}
}

// run executes one parsed command.
func (a *app) run(ctx context.Context, opts docopt.Opts) error {
	if list_, _ := opts.Bool("list"); list_ {
		return a.list(ctx)
	} else if create_, _ := opts.Bool("create"); create_ {
		return a.create(ctx, opts)
	} else if update_, _ := opts.Bool("update"); update_ {
		return a.update(ctx, opts)
	} else if delete_, _ := opts.Bool("delete"); delete_ {
		return a.delete(ctx, opts)
	} else if categories_, _ := opts.Bool("categories"); categories_ {
		renderCategories(a.out)
		return nil
	}
	return fmt.Errorf("unknown command")
}

func (a *app) list(ctx context.Context) error {
	s, err := a.client.ListQuery().Await(ctx)
	if err != nil {
		return err
	}
	v := dashboard.NewListView(s)
	renderList(a.out, v)
	if v.Error != "" {
		return s.Err
	}
	return nil
}

func (a *app) create(ctx context.Context, opts docopt.Opts) error {
	var form model.ProductForm
	applyForm(&form, opts)
	if _, err := dashboard.SubmitCreate(ctx, a.client.CreateMutation(), form); err != nil {
		return err
	}
	fmt.Fprintln(a.out, dashboard.MsgCreated)
	return a.redirect(ctx)
}

func (a *app) update(ctx context.Context, opts docopt.Opts) error {
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
	return a.redirect(ctx)
}

// editForm waits for the product list and returns the edit form of id.
func (a *app) editForm(ctx context.Context, id int) (model.ProductForm, error) {
	s, err := a.client.ListQuery().Await(ctx)
	if err != nil {
		return model.ProductForm{}, err
	}
	v := dashboard.NewEditView(s, id)
	if v.Error != "" {
		return model.ProductForm{}, fmt.Errorf("%s", v.Error)
	}
	return v.Form, nil
}

func (a *app) delete(ctx context.Context, opts docopt.Opts) error {
	id, err := opts.Int("<id>")
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}
	if _, err := a.client.DeleteMutation().Unwrap(ctx, id); err != nil {
		return fmt.Errorf("%s", dashboard.FailureMessage(err, dashboard.MsgDeleteFailed))
	}
	return a.list(ctx)
}

// redirect waits out the post-save delay and then shows the list.
func (a *app) redirect(ctx context.Context) error {
	done := make(chan struct{})
	cancel := dashboard.ScheduleRedirect(a.client.RedirectDelay(), func() { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
	return a.list(ctx)
}

// applyForm overwrites form fields with the options that were given.
func applyForm(form *model.ProductForm, opts docopt.Opts) {
	if v, err := opts.String("--name"); err == nil {
		form.Name = v
	}
	if v, err := opts.String("--sku"); err == nil {
		form.SKU = v
	}
	if v, err := opts.String("--stock"); err == nil {
		n, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			n = math.NaN()
		}
		form.Stock = n
	}
	if v, err := opts.String("--price"); err == nil {
		form.Price = v
	}
	if v, err := opts.String("--category"); err == nil {
		form.Category = v
	}
}
