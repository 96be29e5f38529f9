package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/reoring/wirepolicy"
	"github.com/reoring/wirepolicy/msgpack"
	"github.com/reoring/wirepolicy/yaml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "model":
		modelCmd(os.Args[2:])
	case "convert":
		convertCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "wirepolicy CLI\n\nUsage:\n  wirepolicy model -type T [-dir ./pkg]\n  wirepolicy convert -from json|yaml|msgpack -to json|yaml|msgpack [-naming camel|snake|kebab] [-in file] [-out file]\n\nNotes:\n  - model reads Go source and prints the member table the runtime would build.\n  - convert renames object keys with -naming; values pass through unchanged.")
}

func modelCmd(args []string) {
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	var typeName string
	var dir string
	fs.StringVar(&typeName, "type", "", "struct type name")
	fs.StringVar(&dir, "dir", ".", "package directory")
	_ = fs.Parse(args)
	if typeName == "" {
		fs.Usage()
		os.Exit(2)
	}
	rows, err := collectMembers(dir, typeName)
	if err != nil {
		fatalf("model: %v", err)
	}
	if err := printMembers(os.Stdout, rows); err != nil {
		fatalf("model: %v", err)
	}
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var from, to, naming, in, out, driver string
	var verbose bool
	fs.StringVar(&from, "from", "json", "input format: json, yaml or msgpack")
	fs.StringVar(&to, "to", "json", "output format: json, yaml or msgpack")
	fs.StringVar(&naming, "naming", "", "rename object keys: camel, snake or kebab")
	fs.StringVar(&in, "in", "", "input file (default stdin)")
	fs.StringVar(&out, "out", "", "output file (default stdout)")
	fs.StringVar(&driver, "driver", "stdlib", "JSON tokenizer: stdlib or go-json")
	fs.BoolVar(&verbose, "v", false, "enable verbose logs")
	_ = fs.Parse(args)

	log := newLogger(verbose)
	defer func() { _ = log.Sync() }()

	rename, ok := wirepolicy.NamingPolicyByName(naming)
	if !ok {
		fatalf("convert: unknown naming policy %q", naming)
	}
	switch driver {
	case "stdlib":
	case "go-json":
		wirepolicy.SetJSONDriver(wirepolicy.GoJSONDriver())
	default:
		fatalf("convert: unknown driver %q", driver)
	}

	data, err := readInput(in)
	if err != nil {
		fatalf("convert: reading input: %v", err)
	}
	src, err := openSource(from, data)
	if err != nil {
		fatalf("convert: %v", err)
	}
	log.Debug("converting", zap.String("from", from), zap.String("to", to),
		zap.String("naming", naming), zap.String("driver", wirepolicy.CurrentJSONDriver().Name()), zap.Int("bytes", len(data)))

	result, err := transcode(src, to, rename)
	if err != nil {
		fatalf("convert: %v", err)
	}
	if err := writeOutput(out, result); err != nil {
		fatalf("convert: writing output: %v", err)
	}
	log.Debug("converted", zap.Int("bytes", len(result)))
}

func newLogger(verbose bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func openSource(format string, data []byte) (wirepolicy.Source, error) {
	switch strings.ToLower(format) {
	case "json":
		return wirepolicy.JSONBytes(data), nil
	case "yaml", "yml":
		src, err := yaml.NewSource(data)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "msgpack", "mpk":
		return msgpack.NewBytesSource(data), nil
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}

func transcode(src wirepolicy.Source, format string, rename func(string) string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		s := wirepolicy.NewJSONSink()
		if err := wirepolicy.Copy(s, src, rename); err != nil {
			return nil, err
		}
		return append(s.Bytes(), '\n'), nil
	case "yaml", "yml":
		s := yaml.NewSink()
		if err := wirepolicy.Copy(s, src, rename); err != nil {
			return nil, err
		}
		return s.Bytes()
	case "msgpack", "mpk":
		s := msgpack.NewSink()
		if err := wirepolicy.Copy(s, src, rename); err != nil {
			return nil, err
		}
		return s.Bytes()
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
