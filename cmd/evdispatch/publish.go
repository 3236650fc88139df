package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func newPublishCmd(root *rootOptions) *cobra.Command {
	var (
		data string
		sets []string
	)

	cmd := &cobra.Command{
		Use:   "publish NAME",
		Short: "Dispatch one event",
		Long: `Dispatch one event to its listeners.

The payload is a JSON object given with --data. Each --set key=value adds or
replaces a field; dotted keys create nested objects and values that parse as
JSON (numbers, true, false, null, objects, arrays) keep their type.`,
		Example: `  evdispatch publish user.registered --data '{"email":"a@example.com"}'
  evdispatch publish order.placed --set id=42 --set customer.vip=true`,
		Args: cobra.ExactArgs(1),
		RunE: root.runE(func(cmd *cobra.Command, args []string) error {
			payload, err := buildPayload(data, sets)
			if err != nil {
				return err
			}

			e, err := root.app.Publish(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}

			if !root.app.Dispatcher().HasListeners(e.Name()) {
				fmt.Fprintf(cmd.ErrOrStderr(), "no listeners for %q\n", e.Name())
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "event payload as a JSON object")
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "set a payload field (key=value, repeatable)")
	return cmd
}

// buildPayload merges --data and --set flags into an event payload.
func buildPayload(data string, sets []string) (map[string]any, error) {
	doc := strings.TrimSpace(data)
	if doc == "" {
		doc = "{}"
	}
	if !gjson.Valid(doc) || !gjson.Parse(doc).IsObject() {
		return nil, errors.New("--data must be a JSON object")
	}

	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("--set %q: expected key=value", kv)
		}

		var err error
		if gjson.Valid(value) {
			doc, err = sjson.SetRaw(doc, key, value)
		} else {
			doc, err = sjson.Set(doc, key, value)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "--set %q", kv)
		}
	}

	payload, ok := gjson.Parse(doc).Value().(map[string]any)
	if !ok {
		return nil, errors.New("payload is not a JSON object")
	}
	return payload, nil
}
