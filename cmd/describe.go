package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/parda/internal/definition"
)

func newDescribeCmd() *cobra.Command {
	var (
		format string
		query  string
	)
	cmd := &cobra.Command{
		Use:   "describe [definition]",
		Short: "Print a definition's metadata and structure without touching the filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definition.ParseFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if format == "text" {
				if query != "" {
					return fmt.Errorf("--query needs --format json or yaml")
				}
				text, err := definition.Render(def)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, text)
				return err
			}

			var v any = def.Info()
			if format == "json" || query != "" {
				doc, err := generic(v)
				if err != nil {
					return err
				}
				v = doc
			}
			if query != "" {
				if v, err = selectPath(v, query); err != nil {
					return err
				}
			}

			switch format {
			case "json":
				_, err = fmt.Fprintln(out, oj.JSON(v, &oj.Options{Indent: 2, Sort: true}))
				return err
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(v); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format %q (use json, yaml or text)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml or text")
	cmd.Flags().StringVarP(&query, "query", "q", "", "JSONPath selecting part of the description, e.g. $.structure[*].name")
	return cmd
}

// generic converts v to maps and slices through its JSON form, so the json
// struct tags decide the key names.
func generic(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode description: %w", err)
	}
	doc, err := oj.ParseString(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse description: %w", err)
	}
	return doc, nil
}

// selectPath evaluates a JSONPath against a generic document.
func selectPath(doc any, path string) (any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", path, err)
	}
	return x.Get(doc), nil
}
