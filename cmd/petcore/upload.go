package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"petcore/internal/capacity"
	"petcore/internal/slots"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

type uploadOptions struct {
	server     string
	user       string
	pet        string
	collection string
	timeout    time.Duration
}

func newUploadCmd() *cobra.Command {
	var opts uploadOptions
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a file into the pet's next free slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return upload(ctx, cmd.OutOrStdout(), opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8080/api", "API base URL")
	cmd.Flags().StringVar(&opts.user, "user", "", "user id")
	cmd.Flags().StringVar(&opts.pet, "pet", "", "pet id")
	cmd.Flags().StringVar(&opts.collection, "collection", string(domain.CollectionPhotos), "photos or documents")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "request timeout")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pet")
	return cmd
}

// upload reserves a slot from the pet's current state before sending
// anything, so tier and table limits fail locally.
func upload(ctx context.Context, w io.Writer, opts uploadOptions, path string) error {
	c, err := parseCollection(opts.collection)
	if err != nil {
		return err
	}
	doer, err := transport.NewHTTPDoer(opts.server, &http.Client{}, nil)
	if err != nil {
		return err
	}
	client := transport.NewClient(doer, opts.user)

	rec, err := client.FetchPet(ctx, opts.pet)
	if err != nil {
		return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}
	tier, err := client.FetchTier(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}
	reg, err := slots.FromRecord(c, rec.Fields)
	if err != nil {
		return err
	}
	policy, _ := capacity.ForCollection(c)
	slot, err := reg.Reserve(policy.MaxFor(tier))
	if err != nil {
		return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	res, err := client.Upload(ctx, opts.pet, slot, transport.File{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}
	fmt.Fprintf(w, "%s %s\n", res.Slot, res.URL)
	return nil
}
