package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"harvest-engine/internal/app"

	"github.com/invopop/jsonschema"
)

const usage = `Available commands:
  start      <owner> <business> <YYYY-MM-DD>
  order      <owner> <business> <vendor> <product>:<qty> [...]
  cancel     <owner> <order>
  orders     <owner> <business> [status]
  advance    <owner> <business> <days>
  stock      <owner> <business>
  cash       <owner> <business>
  value      <owner> <business>
  events     <owner> <business> <YYYY-MM-DD>
  sales      <owner> <business> <from> <to>
  price      <owner> <product> <price>
  campaign   <owner> <business> <name> <days> <multiplier> <cost> [ALL|PRODUCT:<id>|CATEGORY:<id>]
  recurring  <owner> <business> <EXPENSE|INCOME> <description> <amount> <frequency> <due_day> [account]
  reverse    <owner> <transaction> <reason>
  statement  <owner> <business> <account> <from> <to>
  shortfalls <owner> <business> <from> <to>
  rebuild    <owner> <business> <from> <to>
  schema     <type>`

// NeedsDatabase reports whether the command talks to the engine. schema does not.
func NeedsDatabase(args []string) bool {
	return len(args) == 0 || args[0] != "schema"
}

// Run executes a one-shot CLI command and writes its JSON result to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}
	if args[0] == "schema" {
		if len(args) != 2 {
			return fmt.Errorf("schema: expected a type name\n%s", usage)
		}
		return Schema(out, args[1])
	}

	v, err := dispatch(ctx, svc, &argList{cmd: args[0], rest: args[1:]})
	if err != nil {
		// Days committed before a failing day are still reported.
		if res, ok := v.(*app.AdvanceResult); ok && res != nil && len(res.Days) > 0 {
			_ = writeJSON(out, res)
		}
		return err
	}
	return writeJSON(out, v)
}

func dispatch(ctx context.Context, svc app.ApplicationService, a *argList) (any, error) {
	switch a.cmd {
	case "start":
		owner, business, date := a.num(0), a.num(1), a.str(2)
		if err := a.done(3); err != nil {
			return nil, err
		}
		return svc.StartGame(ctx, app.StartGameRequest{OwnerID: owner, BusinessID: business, StartDate: date})

	case "order", "po":
		owner, business, vendor := a.num(0), a.num(1), a.num(2)
		if err := a.atLeast(4); err != nil {
			return nil, err
		}
		lines, err := parseLines(a.rest[3:])
		if err != nil {
			return nil, err
		}
		return svc.PlaceOrder(ctx, app.PlaceOrderRequest{OwnerID: owner, BusinessID: business, VendorID: vendor, Lines: lines})

	case "cancel":
		owner, order := a.num(0), a.num(1)
		if err := a.done(2); err != nil {
			return nil, err
		}
		return svc.CancelOrder(ctx, owner, order)

	case "orders":
		owner, business := a.num(0), a.num(1)
		status := ""
		if len(a.rest) > 2 {
			status = a.str(2)
		}
		if err := a.upTo(2, 3); err != nil {
			return nil, err
		}
		return svc.ListOrders(ctx, owner, business, status)

	case "advance", "adv":
		owner, business, days := a.num(0), a.num(1), a.num(2)
		if err := a.done(3); err != nil {
			return nil, err
		}
		return svc.AdvanceTime(ctx, owner, business, days)

	case "stock":
		owner, business := a.num(0), a.num(1)
		if err := a.done(2); err != nil {
			return nil, err
		}
		return svc.CurrentStock(ctx, owner, business)

	case "cash", "bal":
		owner, business := a.num(0), a.num(1)
		if err := a.done(2); err != nil {
			return nil, err
		}
		return svc.GetCashBalance(ctx, owner, business)

	case "value":
		owner, business := a.num(0), a.num(1)
		if err := a.done(2); err != nil {
			return nil, err
		}
		return svc.GetInventoryValue(ctx, owner, business)

	case "events":
		owner, business, date := a.num(0), a.num(1), a.str(2)
		if err := a.done(3); err != nil {
			return nil, err
		}
		return svc.ActiveEventsFor(ctx, owner, business, date)

	case "sales":
		owner, business, from, to := a.num(0), a.num(1), a.str(2), a.str(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return svc.SalesSummary(ctx, owner, business, from, to)

	case "price":
		owner, product, price := a.num(0), a.num(1), a.str(2)
		if err := a.done(3); err != nil {
			return nil, err
		}
		if err := svc.SetSellingPrice(ctx, app.SetPriceRequest{OwnerID: owner, ProductID: product, Price: price}); err != nil {
			return nil, err
		}
		return map[string]any{"product_id": product, "price": price}, nil

	case "campaign":
		req := app.LaunchCampaignRequest{
			OwnerID:      a.num(0),
			BusinessID:   a.num(1),
			Name:         a.str(2),
			DurationDays: a.num(3),
			Multiplier:   a.str(4),
			Cost:         a.str(5),
		}
		if len(a.rest) > 6 {
			target, id, err := parseTarget(a.str(6))
			if err != nil {
				return nil, err
			}
			req.TargetType, req.TargetID = target, id
		}
		if err := a.upTo(6, 7); err != nil {
			return nil, err
		}
		return svc.LaunchCampaign(ctx, req)

	case "recurring":
		req := app.CreateRecurringRequest{
			OwnerID:     a.num(0),
			BusinessID:  a.num(1),
			Kind:        a.str(2),
			Description: a.str(3),
			Amount:      a.str(4),
			Frequency:   a.str(5),
			DueDay:      a.num(6),
		}
		if len(a.rest) > 7 {
			req.Account = a.str(7)
		}
		if err := a.upTo(7, 8); err != nil {
			return nil, err
		}
		return svc.CreateRecurring(ctx, req)

	case "reverse":
		owner, txn, reason := a.num(0), a.str(1), a.str(2)
		if err := a.done(3); err != nil {
			return nil, err
		}
		return svc.ReverseTransaction(ctx, owner, txn, reason)

	case "statement":
		owner, business, account, from, to := a.num(0), a.num(1), a.str(2), a.str(3), a.str(4)
		if err := a.done(5); err != nil {
			return nil, err
		}
		return svc.AccountStatement(ctx, owner, business, account, from, to)

	case "shortfalls":
		owner, business, from, to := a.num(0), a.num(1), a.str(2), a.str(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return svc.CashShortfalls(ctx, owner, business, from, to)

	case "rebuild":
		owner, business, from, to := a.num(0), a.num(1), a.str(2), a.str(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		n, err := svc.RebuildSummaries(ctx, owner, business, from, to)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"rows": n}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s\n%s", a.cmd, usage)
	}
}

// Schema writes the JSON Schema of a published result type.
func Schema(out io.Writer, name string) error {
	types := app.SchemaTypes()
	v, ok := types[name]
	if !ok {
		names := make([]string, 0, len(types))
		for n := range types {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown schema type %q, available: %s", name, strings.Join(names, ", "))
	}
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return writeJSON(out, r.Reflect(v))
}

func parseLines(fields []string) ([]app.OrderLineInput, error) {
	lines := make([]app.OrderLineInput, 0, len(fields))
	for _, field := range fields {
		product, qty, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("order line %q: expected <product>:<qty>", field)
		}
		p, err := strconv.Atoi(product)
		if err != nil {
			return nil, fmt.Errorf("order line %q: invalid product id", field)
		}
		q, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("order line %q: invalid quantity", field)
		}
		lines = append(lines, app.OrderLineInput{ProductID: p, Quantity: q})
	}
	return lines, nil
}

func parseTarget(field string) (string, *int, error) {
	kind, id, hasID := strings.Cut(field, ":")
	kind = strings.ToUpper(kind)
	if !hasID {
		return kind, nil, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return "", nil, fmt.Errorf("target %q: invalid id", field)
	}
	return kind, &n, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// argList reads positional arguments, remembering the first problem so each case can
// read all its arguments and check once.
type argList struct {
	cmd  string
	rest []string
	err  error
}

func (a *argList) str(i int) string {
	if i >= len(a.rest) {
		a.fail(fmt.Errorf("%s: missing argument %d\n%s", a.cmd, i+1, usage))
		return ""
	}
	return a.rest[i]
}

func (a *argList) num(i int) int {
	s := a.str(i)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		a.fail(fmt.Errorf("%s: argument %d must be an integer, got %q", a.cmd, i+1, s))
	}
	return n
}

func (a *argList) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *argList) done(n int) error { return a.upTo(n, n) }

func (a *argList) atLeast(n int) error {
	if a.err != nil {
		return a.err
	}
	if len(a.rest) < n {
		return fmt.Errorf("%s: expected at least %d arguments\n%s", a.cmd, n, usage)
	}
	return nil
}

func (a *argList) upTo(lo, hi int) error {
	if a.err != nil {
		return a.err
	}
	if len(a.rest) < lo || len(a.rest) > hi {
		return fmt.Errorf("%s: wrong number of arguments\n%s", a.cmd, usage)
	}
	return nil
}
