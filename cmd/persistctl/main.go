package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	_ "persistkit/examples/crm" // register the demo schema
	"persistkit/internal/config"
	"persistkit/internal/report"
	"persistkit/internal/schema"
	"persistkit/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, path, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path != "" {
		log.Printf("Config loaded from %s", path)
	}

	var cmdErr error
	switch os.Args[1] {
	case "schema":
		cmdErr = runSchema(os.Args[2:])
	case "verify":
		cmdErr = runVerify(cfg, os.Args[2:])
	case "dump":
		cmdErr = runDump(os.Args[2:])
	case "config":
		fmt.Println(cfg.Summary())
	default:
		usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		log.Fatalf("%s failed: %v", os.Args[1], cmdErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: persistctl <command> [flags]

commands:
  schema   print the generated DDL for every registered type
  verify   open the store and check every registered table exists
  dump     write the full schema report (-format json|yaml|text)
  config   print the effective configuration`)
}

// runSchema prints the CREATE statements for every registered type.
func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	dialectName := fs.String("dialect", "sqlite", "target dialect (sqlite, postgres)")
	fs.Parse(args)

	dia, err := dialectFor(*dialectName)
	if err != nil {
		return err
	}

	audited := false
	for _, d := range schema.Default.Descriptors() {
		fmt.Printf("-- %s\n%s;\n", d.Name, d.CreateTableSQL(dia))
		for _, stmt := range d.CreateIndexSQL(dia) {
			fmt.Printf("%s;\n", stmt)
		}
		fmt.Println()
		audited = audited || d.Audit
	}
	if audited {
		fmt.Printf("-- audit trail\n%s;\n", schema.AuditTableSQL(dia))
	}
	return nil
}

// runVerify opens the configured store, applies the schema, and checks
// every registered table concurrently.
func runVerify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	apply := fs.Bool("apply", false, "apply missing DDL before verifying")
	timeout := fs.Duration("timeout", 30*time.Second, "overall verification timeout")
	fs.Parse(args)

	store, err := storage.Open(cfg.Database.Provider, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	descs := schema.Default.Descriptors()
	if *apply {
		if err := store.EnsureSchema(ctx, descs...); err != nil {
			return err
		}
		log.Printf("Applied schema for %d types", len(descs))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range descs {
		g.Go(func() error {
			ok, err := store.TableExists(ctx, d.Table)
			if err != nil {
				return fmt.Errorf("check table %s: %w", d.Table, err)
			}
			if !ok {
				return fmt.Errorf("table %s for type %s is missing", d.Table, d.Name)
			}
			log.Printf("Table %s ok (%s)", d.Table, d.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("Verified %d tables", len(descs))
	return nil
}

// runDump writes the schema report to stdout.
func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dialectName := fs.String("dialect", "sqlite", "target dialect (sqlite, postgres)")
	format := fs.String("format", "text", "output format (json, yaml, text)")
	fs.Parse(args)

	dia, err := dialectFor(*dialectName)
	if err != nil {
		return err
	}
	formatter, err := report.ForFormat(*format)
	if err != nil {
		return err
	}

	return formatter.Write(report.Build(schema.Default, dia), os.Stdout)
}

func dialectFor(name string) (schema.Dialect, error) {
	switch name {
	case "sqlite":
		return schema.SQLite{}, nil
	case "postgres":
		return schema.Postgres{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}
