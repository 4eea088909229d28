// Command graphrow runs GraphQL operations whose documents carry row-store
// directives: it strips the directives off the wire, reconciles responses
// into a key-row-cell store, and prints the resulting store snapshot.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	directive "github.com/hanpama/graphrow/internal/directive"
	language "github.com/hanpama/graphrow/internal/language"
	otel "github.com/hanpama/graphrow/internal/otel"
	pipeline "github.com/hanpama/graphrow/internal/pipeline"
	reconcile "github.com/hanpama/graphrow/internal/reconcile"
	store "github.com/hanpama/graphrow/internal/store"
)

const rootUsage = `graphrow - row-store reconciliation for GraphQL responses

USAGE:
  graphrow <command> [flags]

COMMANDS:
  query        Run one operation over HTTP and print the reconciled store
  watch        Run a subscription and print the store after every payload
  strip        Print an operation with the row-store directives removed
  sdl          Print the directive declarations for a server schema
  help         Show help for a command

Run 'graphrow help <command>' for details on a command.
`

const queryUsage = `query FLAGS:
  -endpoint <url>        GraphQL HTTP endpoint (required)
  -query <text>          Operation text
  -query.file <path>     Read the operation from a file instead
  -operation <name>      Operation to run when the document declares several
  -var <name=value>      Operation variable; value is parsed as JSON, or taken
                         as a plain string when it is not valid JSON (repeatable)
  -header <name: value>  Extra HTTP header (repeatable)
  -timeout <duration>    Request timeout (default: 30s)
  -pretty                Indent the printed store snapshot
  -dump-response         Print the raw GraphQL response to stderr
  -otel.endpoint <addr>  OTLP gRPC collector endpoint (enables tracing)
  -otel.service <name>   Service name reported to the collector (default: graphrow)
`

const watchUsage = `watch FLAGS:
  -ws.endpoint <url>     GraphQL WebSocket endpoint (required)
  -query <text>          Subscription text
  -query.file <path>     Read the subscription from a file instead
  -operation <name>      Operation to run when the document declares several
  -var <name=value>      Operation variable; value is parsed as JSON, or taken
                         as a plain string when it is not valid JSON (repeatable)
  -header <name: value>  Extra handshake header (repeatable)
  -ack.timeout <duration> How long to wait for connection_ack (default: 10s)
  -pretty                Indent the printed store snapshots
  -otel.endpoint <addr>  OTLP gRPC collector endpoint (enables tracing)
  -otel.service <name>   Service name reported to the collector (default: graphrow)

Prints one store snapshot per payload until the stream completes or the
process is interrupted.
`

const stripUsage = `strip FLAGS:
  -query <text>          Operation text
  -query.file <path>     Read the operation from a file instead

Prints the document as it would go on the wire.
`

const sdlUsage = `sdl:
  Prints the directive declarations to paste into a server schema.
  Takes no flags.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("graphrow", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "query":
		return cmdQuery(cmdArgs)
	case "watch":
		return cmdWatch(cmdArgs)
	case "strip":
		return cmdStrip(cmdArgs)
	case "sdl":
		return cmdSDL(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdQuery(args []string) error {
	endpoint := ""
	queryText := ""
	queryFile := ""
	operation := ""
	timeout := 30 * time.Second
	pretty := false
	dumpResponse := false
	otelEndpoint := ""
	otelService := "graphrow"
	vars := varFlag{}
	var headers stringListFlag

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&endpoint, "endpoint", endpoint, "GraphQL HTTP endpoint")
	fs.StringVar(&queryText, "query", queryText, "operation text")
	fs.StringVar(&queryFile, "query.file", queryFile, "read the operation from a file")
	fs.StringVar(&operation, "operation", operation, "operation name")
	fs.Var(&vars, "var", "operation variable as name=value")
	fs.Var(&headers, "header", "extra HTTP header as name: value")
	fs.DurationVar(&timeout, "timeout", timeout, "request timeout")
	fs.BoolVar(&pretty, "pretty", pretty, "indent the printed snapshot")
	fs.BoolVar(&dumpResponse, "dump-response", dumpResponse, "print the raw response to stderr")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP gRPC collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "service name for tracing")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, queryUsage)
		return err
	}
	if endpoint == "" {
		fmt.Fprint(os.Stderr, queryUsage)
		return fmt.Errorf("-endpoint is required")
	}
	query, err := readQuery(queryText, queryFile)
	if err != nil {
		fmt.Fprint(os.Stderr, queryUsage)
		return err
	}
	popts, err := transportOptions(timeout, 0, headers)
	if err != nil {
		return err
	}

	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	st := store.New()
	p := pipeline.New(reconcile.New(st), pipeline.NewHTTP(endpoint, popts...), nil)

	res, err := p.Do(context.Background(), query, operation, vars)
	if err != nil {
		return err
	}
	if dumpResponse {
		raw, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, string(raw))
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "graphql: %s\n", res.Errors.Error())
	}
	return printSnapshot(st, pretty)
}

func cmdWatch(args []string) error {
	endpoint := ""
	queryText := ""
	queryFile := ""
	operation := ""
	ackTimeout := 10 * time.Second
	pretty := false
	otelEndpoint := ""
	otelService := "graphrow"
	vars := varFlag{}
	var headers stringListFlag

	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&endpoint, "ws.endpoint", endpoint, "GraphQL WebSocket endpoint")
	fs.StringVar(&queryText, "query", queryText, "subscription text")
	fs.StringVar(&queryFile, "query.file", queryFile, "read the subscription from a file")
	fs.StringVar(&operation, "operation", operation, "operation name")
	fs.Var(&vars, "var", "operation variable as name=value")
	fs.Var(&headers, "header", "extra handshake header as name: value")
	fs.DurationVar(&ackTimeout, "ack.timeout", ackTimeout, "connection_ack wait")
	fs.BoolVar(&pretty, "pretty", pretty, "indent the printed snapshots")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP gRPC collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "service name for tracing")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, watchUsage)
		return err
	}
	if endpoint == "" {
		fmt.Fprint(os.Stderr, watchUsage)
		return fmt.Errorf("-ws.endpoint is required")
	}
	query, err := readQuery(queryText, queryFile)
	if err != nil {
		fmt.Fprint(os.Stderr, watchUsage)
		return err
	}
	popts, err := transportOptions(0, ackTimeout, headers)
	if err != nil {
		return err
	}

	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New()
	p := pipeline.New(reconcile.New(st), nil, pipeline.NewWS(endpoint, popts...))

	err = p.Subscribe(ctx, query, operation, vars, func(res *pipeline.Result) error {
		if len(res.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "graphql: %s\n", res.Errors.Error())
		}
		return printSnapshot(st, pretty)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func cmdStrip(args []string) error {
	queryText := ""
	queryFile := ""

	fs := flag.NewFlagSet("strip", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&queryText, "query", queryText, "operation text")
	fs.StringVar(&queryFile, "query.file", queryFile, "read the operation from a file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, stripUsage)
		return err
	}
	query, err := readQuery(queryText, queryFile)
	if err != nil {
		fmt.Fprint(os.Stderr, stripUsage)
		return err
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	fmt.Print(language.FormatQuery(directive.StripDocument(doc)))
	return nil
}

func cmdSDL(args []string) error {
	if len(args) > 0 {
		fmt.Fprint(os.Stderr, sdlUsage)
		return fmt.Errorf("sdl takes no arguments")
	}
	fmt.Print(directive.SDL)
	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "query":
		fmt.Print(queryUsage)
	case "watch":
		fmt.Print(watchUsage)
	case "strip":
		fmt.Print(stripUsage)
	case "sdl":
		fmt.Print(sdlUsage)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

// readQuery resolves the -query / -query.file pair; exactly one must be set.
func readQuery(text, file string) (string, error) {
	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("-query and -query.file are mutually exclusive")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case text != "":
		return text, nil
	default:
		return "", fmt.Errorf("-query or -query.file is required")
	}
}

func transportOptions(timeout, ackTimeout time.Duration, headers stringListFlag) ([]pipeline.Option, error) {
	var popts []pipeline.Option
	if timeout > 0 {
		popts = append(popts, pipeline.WithRequestTimeout(timeout))
	}
	if ackTimeout > 0 {
		popts = append(popts, pipeline.WithAckTimeout(ackTimeout))
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"name: value\"", h)
		}
		popts = append(popts, pipeline.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return popts, nil
}

func printSnapshot(st *store.Store, pretty bool) error {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(st.Snapshot(), "", "  ")
	} else {
		out, err = json.Marshal(st.Snapshot())
	}
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// varFlag collects repeated -var name=value pairs. The value is decoded as
// JSON when it parses, so numbers and booleans keep their type on the wire;
// anything else is passed through as a string.
type varFlag map[string]any

func (v varFlag) String() string { return "" }

func (v varFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("invalid variable %q, expected name=value", s)
	}
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	v[name] = parsed
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return strings.Join(*s, ",") }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
