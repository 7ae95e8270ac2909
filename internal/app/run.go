package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/datashelf/internal/ctxlog"
	"github.com/vk/datashelf/internal/policy"
)

// Run dispatches one shelf command. The first argument is the command name,
// the rest are its arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "args", args)

	if len(args) == 0 {
		return fmt.Errorf("no command given (want types, exists, scan, cat, or put)")
	}
	command, rest := args[0], args[1:]

	switch command {
	case "types":
		return a.runTypes()
	case "exists":
		return a.runExists(ctx, rest)
	case "scan":
		return a.runScan(ctx, rest)
	case "cat":
		return a.runCat(ctx, rest)
	case "put":
		return a.runPut(ctx, rest)
	}
	return fmt.Errorf("unknown command %q (want types, exists, scan, cat, or put)", command)
}

func (a *App) runTypes() error {
	for _, t := range a.shelf.Types() {
		fmt.Fprintln(a.outW, t)
	}
	return nil
}

func (a *App) runExists(ctx context.Context, args []string) error {
	datasetType, dataID, err := splitDataArgs(args, "exists")
	if err != nil {
		return err
	}
	ok, err := a.shelf.WithTag(a.tag).Exists(datasetType, dataID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.outW, ok)
	return nil
}

func (a *App) runScan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scan DATASET_TYPE")
	}
	found, err := a.shelf.WithTag(a.tag).Scan(ctx, args[0])
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(found))
	for path := range found {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintf(a.outW, "%s\t%s\n", path, formatDataID(found[path]))
	}
	return nil
}

func (a *App) runCat(ctx context.Context, args []string) error {
	datasetType, dataID, err := splitDataArgs(args, "cat")
	if err != nil {
		return err
	}
	obj, err := a.shelf.WithTag(a.tag).Get(ctx, datasetType, dataID)
	if err != nil {
		return err
	}

	switch v := obj.(type) {
	case []byte:
		_, err = a.outW.Write(v)
	case string:
		_, err = fmt.Fprint(a.outW, v)
	case *policy.Policy:
		err = v.Dump(a.outW)
	default:
		enc := yaml.NewEncoder(a.outW)
		enc.SetIndent(2)
		if err = enc.Encode(v); err == nil {
			err = enc.Close()
		}
	}
	return err
}

func (a *App) runPut(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: put DATASET_TYPE FILE [key=value ...]")
	}
	datasetType, file := args[0], args[1]
	dataID, err := parseDataID(args[2:])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return a.shelf.PutFile(ctx, datasetType, dataID, data)
}

// splitDataArgs parses "DATASET_TYPE key=value ..." command arguments.
func splitDataArgs(args []string, command string) (string, map[string]any, error) {
	if len(args) < 1 {
		return "", nil, fmt.Errorf("usage: %s DATASET_TYPE [key=value ...]", command)
	}
	dataID, err := parseDataID(args[1:])
	if err != nil {
		return "", nil, err
	}
	return args[0], dataID, nil
}

// parseDataID converts key=value pairs into a data ID. Values that parse as
// integers or floats become numbers, everything else stays a string.
func parseDataID(pairs []string) (map[string]any, error) {
	dataID := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid data ID component %q (want key=value)", pair)
		}
		if n, err := strconv.Atoi(value); err == nil {
			dataID[key] = n
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			dataID[key] = f
		} else {
			dataID[key] = value
		}
	}
	return dataID, nil
}

// formatDataID renders a data ID as stable "key=value" pairs.
func formatDataID(dataID map[string]any) string {
	keys := make([]string, 0, len(dataID))
	for k := range dataID {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, dataID[k]))
	}
	return strings.Join(parts, " ")
}
