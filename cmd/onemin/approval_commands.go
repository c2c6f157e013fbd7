package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onemin/internal/approval"
	"onemin/internal/services"
	"onemin/internal/textutil"
)

func requestNotFound(id string) error {
	return services.Wrap(services.ErrNotFound, "approval", "lookup", fmt.Sprintf("no approval request with id %q", id), nil)
}

func wrapResolved(op string, err error) error {
	if errors.Is(err, approval.ErrAlreadyResolved) {
		return services.Wrap(services.ErrValidation, "approval", op, "request is no longer pending", err)
	}
	return err
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve a pending request and upload its video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			var progress io.Writer
			if !jsonOutput {
				progress = cmd.ErrOrStderr()
			}
			stack, err := ctx.newController(progress)
			if err != nil {
				return err
			}
			defer stack.Close()

			req, result, err := stack.controller.Approve(cmd.Context(), id)
			if err != nil {
				return wrapResolved("approve", err)
			}
			if req == nil {
				return requestNotFound(id)
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{"request": req, "upload": result})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Approved %s: %s\n", req.ID, req.Title)
			if result != nil {
				fmt.Fprintf(out, "Uploaded (%s): %s\n", result.Privacy, result.URL)
				if result.ThumbnailErr != "" {
					fmt.Fprintf(out, "Thumbnail was not set: %s\n", result.ThumbnailErr)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the request and upload result as JSON")
	return cmd
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <request-id>",
		Short: "Reject a pending request without uploading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			stack, err := ctx.newController(nil)
			if err != nil {
				return err
			}
			defer stack.Close()

			req, err := stack.controller.Reject(cmd.Context(), id)
			if err != nil {
				return wrapResolved("reject", err)
			}
			if req == nil {
				return requestNotFound(id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s: %s\n", req.ID, req.Title)
			return nil
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var fields approval.Fields

	cmd := &cobra.Command{
		Use:   "edit <request-id>",
		Short: "Edit the metadata of a pending request before approving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if fields.IsZero() {
				return services.Wrap(services.ErrValidation, "approval", "edit",
					"nothing to change; pass --title, --description, --tags, --category or --thumbnail", nil)
			}
			if fields.ThumbnailPath != "" {
				abs, err := filepath.Abs(fields.ThumbnailPath)
				if err != nil {
					return fmt.Errorf("resolve thumbnail path: %w", err)
				}
				if _, err := os.Stat(abs); err != nil {
					return services.Wrap(services.ErrNotFound, "approval", "edit", "thumbnail not found: "+abs, nil)
				}
				fields.ThumbnailPath = abs
			}

			store, err := ctx.openApprovals()
			if err != nil {
				return err
			}
			existing, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if existing == nil {
				return requestNotFound(id)
			}
			if !existing.IsPending() {
				return services.Wrap(services.ErrValidation, "approval", "edit",
					fmt.Sprintf("request %s is %s and can no longer be edited", id, existing.Status), nil)
			}
			updated, err := store.UpdateFields(cmd.Context(), id, fields)
			if err != nil {
				return err
			}
			if updated == nil {
				return requestNotFound(id)
			}
			printRequest(cmd.OutOrStdout(), updated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fields.Title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&fields.Description, "description", "d", "", "New description")
	cmd.Flags().StringSliceVar(&fields.Tags, "tags", nil, "New tags (comma separated)")
	cmd.Flags().StringVar(&fields.CategoryID, "category", "", "New YouTube category id")
	cmd.Flags().StringVar(&fields.ThumbnailPath, "thumbnail", "", "Replacement thumbnail image")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showAll bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [request-id]",
		Short: "List pending approval requests or show one request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openApprovals()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				id := strings.TrimSpace(args[0])
				req, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if req == nil {
					return requestNotFound(id)
				}
				if jsonOutput {
					return writeJSON(cmd, req)
				}
				printRequest(out, req)
				return nil
			}

			var requests []*approval.Request
			if showAll {
				requests, err = store.List(cmd.Context())
			} else {
				requests, err = store.ListPending(cmd.Context())
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				if requests == nil {
					requests = []*approval.Request{}
				}
				return writeJSON(cmd, requests)
			}
			if len(requests) == 0 {
				if showAll {
					fmt.Fprintln(out, "No approval requests")
				} else {
					fmt.Fprintln(out, "No pending approval requests")
				}
				return nil
			}
			rows := make([][]string, 0, len(requests))
			for _, req := range requests {
				rows = append(rows, []string{
					req.ID,
					string(req.Status),
					textutil.Truncate(req.Title, 50),
					filepath.Base(req.VideoPath),
					req.CreatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Title", "Video", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include approved and rejected requests")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printRequest(out io.Writer, req *approval.Request) {
	fmt.Fprintf(out, "Request:     %s (%s)\n", req.ID, req.Status)
	fmt.Fprintf(out, "Video:       %s\n", req.VideoPath)
	fmt.Fprintf(out, "Title:       %s\n", req.Title)
	fmt.Fprintf(out, "Tags:        %s\n", strings.Join(req.Tags, ", "))
	fmt.Fprintf(out, "Category:    %s\n", req.CategoryID)
	if req.ThumbnailPath != "" {
		fmt.Fprintf(out, "Thumbnail:   %s\n", req.ThumbnailPath)
	}
	fmt.Fprintf(out, "Created:     %s\n", req.CreatedAt)
	if req.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated:     %s\n", req.UpdatedAt)
	}
	if req.Description != "" {
		fmt.Fprintf(out, "Description:\n%s\n", indent(req.Description, "  "))
	}
}
