package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"petcore/internal/capacity"
	"petcore/internal/slots"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

func parseCollection(s string) (domain.Collection, error) {
	c := domain.Collection(s)
	if _, n := c.SlotLayout(); n == 0 {
		return "", fmt.Errorf("unknown collection %q (want %s or %s)", s, domain.CollectionPhotos, domain.CollectionDocuments)
	}
	return c, nil
}

func newProjectCmd() *cobra.Command {
	var (
		collection string
		tier       string
	)
	cmd := &cobra.Command{
		Use:   "project [record.json]",
		Short: "Print the user-facing list for a pet record's slots",
		Long: "Reads a pet record as the JSON object returned by pull/pet-profile " +
			"(from a file, or stdin when omitted) and prints the projected list under the tier's limit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCollection(collection)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			fields, err := transport.DecodeFields(data)
			if err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			return printProjection(cmd.OutOrStdout(), c, tier, fields)
		},
	}
	cmd.Flags().StringVar(&collection, "collection", string(domain.CollectionPhotos), "photos or documents")
	cmd.Flags().StringVar(&tier, "tier", capacity.TierNone, "subscription name")
	return cmd
}

func printProjection(w io.Writer, c domain.Collection, tier string, fields map[string]string) error {
	reg, err := slots.FromRecord(c, fields)
	if err != nil {
		return err
	}
	policy, _ := capacity.ForCollection(c)
	limit := policy.MaxFor(tier)
	list := slots.NewList(reg, limit)
	fmt.Fprintf(w, "%s: %d of %d used (%s)\n", c, list.ContentCount(), limit, capacity.DisplayName(tier))
	for i, item := range list.Items() {
		switch {
		case item.IsAdd():
			fmt.Fprintln(w, "  +  add")
		case c == domain.CollectionDocuments:
			fmt.Fprintf(w, "%3d  %s  %s\n", i+1, slots.DocumentName(item.Ref, i), item.Ref)
		default:
			fmt.Fprintf(w, "%3d  %s\n", i+1, item.Ref)
		}
	}
	if next, ok := reg.FindNextAvailable(); ok {
		fmt.Fprintf(w, "next slot: %s\n", next)
	}
	return nil
}
