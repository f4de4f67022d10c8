package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/xcs-tools/bcg-ident/lib/config"
	"github.com/xcs-tools/bcg-ident/lib/history"
	"github.com/xcs-tools/bcg-ident/lib/mission"
)

func newSetupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the project history record from the declared configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			_, err := a.guard.Create()
			if errors.Is(err, history.ErrProjectExists) {
				// An existing record is fine as long as it still matches.
				if _, err := a.guard.Load(); err != nil {
					return renderFailure(out, err)
				}
				renderOK(out, "project %s is already set up at %s", a.cfg.ProjectName(), a.guard.Path())
				return nil
			}
			if err != nil {
				return renderFailure(out, err)
			}
			renderOK(out, "created project %s at %s", a.cfg.ProjectName(), a.guard.Path())
			return nil
		},
	}
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the history record matches the declared configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rec, err := a.guard.Load()
			if err != nil {
				return renderFailure(out, err)
			}
			renderOK(out, "project %s matches %s (%d keys)", a.cfg.ProjectName(), a.guard.Path(), len(rec))
			return nil
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the validated history record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rec, err := a.guard.Load()
			if err != nil {
				return renderFailure(out, err)
			}
			if asYAML {
				return renderYAML(out, rec)
			}
			renderRecord(out, rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the record as YAML")
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var rawEntries []string
	cmd := &cobra.Command{
		Use:   "update [key=value ...]",
		Short: "Merge entries into the history record",
		Long: `Merge entries into the history record after validating it.

Each --entry is a JSON object applied in the order given; key=value
arguments form one more entry applied last. Values are parsed as JSON
where possible and kept as strings otherwise, so count=3 stores a number
and stage=downloaded stores a string.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			entries, err := parseEntries(rawEntries, args)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return oops.Errorf("nothing to update: give --entry or key=value arguments")
			}
			rec, err := a.guard.Update(entries...)
			if err != nil {
				return renderFailure(out, err)
			}
			renderOK(out, "updated %s (%d keys)", a.guard.Path(), len(rec))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawEntries, "entry", nil, "JSON object to merge (repeatable)")
	return cmd
}

// parseEntries turns --entry JSON objects and key=value pairs into update
// entries, preserving order.
func parseEntries(rawEntries, pairs []string) ([]history.Entry, error) {
	var entries []history.Entry
	for i, raw := range rawEntries {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		var e history.Entry
		if err := dec.Decode(&e); err != nil || e == nil {
			return nil, oops.Errorf("--entry %d is not a JSON object: %q", i+1, raw)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, oops.Errorf("--entry %d has data after the JSON object: %q", i+1, raw)
		}
		entries = append(entries, e)
	}
	if len(pairs) == 0 {
		return entries, nil
	}
	kv := make(history.Entry, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, oops.Errorf("argument %q is not key=value", p)
		}
		kv[key] = parseValue(value)
	}
	return append(entries, kv), nil
}

func parseValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

func newConfigCommand(a *app) *cobra.Command {
	var writePath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective declared configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writePath != "" {
				if err := config.WriteConfigFile(a.fs, writePath, a.cfg); err != nil {
					return err
				}
				renderOK(cmd.OutOrStdout(), "wrote %s", writePath)
				return nil
			}
			return renderYAML(cmd.OutOrStdout(), a.cfg)
		},
	}
	cmd.Flags().StringVar(&writePath, "write", "", "write the configuration to this file instead of printing it")
	return cmd
}

func newMissionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "missions",
		Short: "List known missions, whether they are enabled and their downloaders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reg := mission.DefaultRegistry()
			sel, err := a.cfg.MissionSelection(reg)
			if err != nil {
				return err
			}
			dls, err := sel.Downloaders(reg)
			if err != nil {
				return err
			}

			declared := make(map[string]bool)
			for _, t := range sel.Toggles() {
				declared[t.Name] = t.Include
			}
			names := reg.Names()
			sort.SliceStable(names, func(i, j int) bool {
				return declaredIndex(sel, names[i]) < declaredIndex(sel, names[j])
			})
			for _, name := range names {
				status := dimStyle.Width(10).Render("disabled")
				if declared[name] {
					status = okStyle.Width(10).Render("enabled")
				}
				downloader := "-"
				if d := dls[name]; d != nil {
					downloader = d.Name()
				} else if declared[name] {
					downloader = "(generated locally)"
				}
				fmt.Fprintf(out, "%-14s %s %s\n", name, status, downloader)
			}
			return nil
		},
	}
}

// declaredIndex orders missions by declaration, undeclared ones last.
func declaredIndex(sel *mission.Selection, name string) int {
	for i, t := range sel.Toggles() {
		if t.Name == name {
			return i
		}
	}
	return len(sel.Toggles())
}
