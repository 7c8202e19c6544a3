package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"petcore/internal/capacity"
	"petcore/internal/dirty"
	"petcore/internal/screen"
	"petcore/internal/transport"
)

func readFields(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields, err := transport.DecodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fields, nil
}

func newContactsDiffCmd() *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "contacts-diff BEFORE.json AFTER.json",
		Short: "List the contacts form fields that differ between two settings documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := readFields(args[0])
			if err != nil {
				return err
			}
			after, err := readFields(args[1])
			if err != nil {
				return err
			}
			baseline := dirty.Capture(screen.ContactsForm(before, tier))
			changed := dirty.Changed(screen.ContactsForm(after, tier), baseline)
			w := cmd.OutOrStdout()
			if len(changed) == 0 {
				fmt.Fprintln(w, "no changes")
				return nil
			}
			for _, key := range changed {
				fmt.Fprintln(w, key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tier, "tier", capacity.TierNone, "subscription name; sets the emergency contact row count")
	return cmd
}
