package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdano/clausemap/internal/crosswalk"
	"github.com/verdano/clausemap/internal/lookup"
	"github.com/verdano/clausemap/internal/match"
)

// ---------------------------------------------------------------------------
// Interfaces — kept here so builtin commands avoid importing concrete types.
// ---------------------------------------------------------------------------

// EquivalentsFinder resolves cross-framework equivalents of a clause.
type EquivalentsFinder interface {
	Equivalents(ctx context.Context, clauseID string) ([]crosswalk.Equivalent, error)
}

// CacheStats reports cache hit/miss counts.
type CacheStats interface {
	Stats() (hits, misses uint64)
}

// LogStats reports analytics flush counts.
type LogStats interface {
	Stats() (flushed, pending, dropped uint64)
}

// Deps bundles the backends commands draw on. Crosswalk, Cache and
// QueryLog may be nil; the commands degrade to what is available.
type Deps struct {
	Lookup    *lookup.Service
	Engine    *match.Engine
	Crosswalk EquivalentsFinder
	Cache     CacheStats
	QueryLog  LogStats
	StartedAt time.Time
}

// ---------------------------------------------------------------------------
// RegisterBuiltins wires up the built-in slash commands plus one lookup
// command per framework in the catalog.
// ---------------------------------------------------------------------------

// RegisterBuiltins registers /start, /help, /stats, /health, /map and
// the per-framework commands (/esrs, /gri, ...).
func RegisterBuiltins(reg *Registry, deps Deps) {
	reg.Register(startCommand(deps))
	reg.Register(helpCommand(reg))
	reg.Register(statsCommand(deps))
	reg.Register(healthCommand(deps))
	reg.Register(mapCommand(deps))
	for _, framework := range deps.Engine.Snapshot().Frameworks() {
		reg.Register(frameworkCommand(deps, framework))
	}
}

// ---------------------------------------------------------------------------
// /start
// ---------------------------------------------------------------------------

func startCommand(deps Deps) *Command {
	return &Command{
		Name:        "start",
		Description: "Show a short introduction",
		Usage:       "/start",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			frameworks := deps.Engine.Snapshot().Frameworks()
			var b strings.Builder
			b.WriteString("I map free-text disclosure questions to clauses across reporting frameworks.\n")
			b.WriteString("Just type a question, or scope a lookup with a framework command:\n")
			for _, f := range frameworks {
				fmt.Fprintf(&b, "  /%s <query>\n", strings.ToLower(f))
			}
			b.WriteString("Type /help for the full command list.")
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /help
// ---------------------------------------------------------------------------

func helpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "help",
		Description: "List all available commands",
		Usage:       "/help",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			cmds := reg.List()
			var b strings.Builder
			b.WriteString("Available commands:\n")
			for _, c := range cmds {
				fmt.Fprintf(&b, "  /%s — %s\n", c.Name, c.Description)
				if c.Usage != "" {
					fmt.Fprintf(&b, "    Usage: %s\n", c.Usage)
				}
			}
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /stats
// ---------------------------------------------------------------------------

func statsCommand(deps Deps) *Command {
	return &Command{
		Name:        "stats",
		Description: "Show catalog and service statistics",
		Usage:       "/stats",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			snap := deps.Engine.Snapshot()
			var b strings.Builder
			fmt.Fprintf(&b, "Clauses: %d across %d frameworks (%s)\n",
				snap.Len(), len(snap.Frameworks()), strings.Join(snap.Frameworks(), ", "))
			fmt.Fprintf(&b, "Uptime: %s\n", time.Since(deps.StartedAt).Round(time.Second))
			if deps.Cache != nil {
				hits, misses := deps.Cache.Stats()
				fmt.Fprintf(&b, "Cache: %d hits, %d misses\n", hits, misses)
			}
			if deps.QueryLog != nil {
				flushed, pending, dropped := deps.QueryLog.Stats()
				fmt.Fprintf(&b, "Query log: %d flushed, %d pending, %d dropped\n",
					flushed, pending, dropped)
			}
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /health
// ---------------------------------------------------------------------------

func healthCommand(deps Deps) *Command {
	return &Command{
		Name:        "health",
		Description: "Report service health",
		Usage:       "/health",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			snap := deps.Engine.Snapshot()
			if snap.Len() == 0 {
				return &CommandResult{Content: "DEGRADED: catalog is empty"}, nil
			}
			return &CommandResult{
				Content: fmt.Sprintf("OK: serving %d clauses, up %s",
					snap.Len(), time.Since(deps.StartedAt).Round(time.Second)),
			}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /map
// ---------------------------------------------------------------------------

func mapCommand(deps Deps) *Command {
	return &Command{
		Name:        "map",
		Description: "Map a topic across all frameworks",
		Usage:       "/map <query>",
		Handler: func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
			if args == "" {
				return &CommandResult{Content: "Usage: /map <query>"}, nil
			}
			resp := deps.Lookup.Lookup(ctx, cc.Platform, cc.UserID, args, nil)
			if len(resp.Results) == 0 {
				return &CommandResult{Content: FormatResults(nil)}, nil
			}

			byFramework := make(map[string][]match.Result)
			var order []string
			for _, r := range resp.Results {
				if _, seen := byFramework[r.Framework]; !seen {
					order = append(order, r.Framework)
				}
				byFramework[r.Framework] = append(byFramework[r.Framework], r)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Coverage: %d of %d frameworks\n",
				len(order), len(deps.Engine.Snapshot().Frameworks()))
			for _, f := range order {
				fmt.Fprintf(&b, "%s:\n", f)
				for _, r := range byFramework[f] {
					fmt.Fprintf(&b, "  %s — %s (%d%%)\n", r.Reference, r.Text, r.Confidence)
				}
			}

			if deps.Crosswalk != nil {
				eqs, err := deps.Crosswalk.Equivalents(ctx, resp.Results[0].ClauseID)
				if err == nil && len(eqs) > 0 {
					fmt.Fprintf(&b, "Equivalents of %s:\n", resp.Results[0].ClauseID)
					for _, eq := range eqs {
						fmt.Fprintf(&b, "  [%s %s] overlap %.0f%%\n",
							eq.Framework, eq.Reference, eq.Overlap*100)
					}
				}
			}
			return &CommandResult{Content: b.String(), Data: resp.Results}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Per-framework lookup commands
// ---------------------------------------------------------------------------

func frameworkCommand(deps Deps, framework string) *Command {
	name := strings.ToLower(framework)
	return &Command{
		Name:        name,
		Description: fmt.Sprintf("Search %s clauses", framework),
		Usage:       fmt.Sprintf("/%s <query>", name),
		Handler: func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
			if args == "" {
				return &CommandResult{Content: fmt.Sprintf("Usage: /%s <query>", name)}, nil
			}
			resp := deps.Lookup.Lookup(ctx, cc.Platform, cc.UserID, args, []string{framework})
			return &CommandResult{Content: FormatResults(resp.Results), Data: resp.Results}, nil
		},
	}
}
