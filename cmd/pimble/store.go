package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/infrastructure/di"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Create and inspect stores",
}

var storeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new store",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		name, _ := cmd.Flags().GetString("name")

		container, err := newContainer("error")
		if err != nil {
			return err
		}
		defer container.Shutdown(context.Background())
		defer container.Manager.CloseAll(cmd.Context())

		store, err := container.Manager.CreateStore(cmd.Context(), entities.NewLocalLocation(path), name)
		if err != nil {
			return err
		}
		fmt.Printf("created store %s (%s)\nroot node %s\n", store.Name(), store.ID(), store.RootNodeID())
		return nil
	},
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print a store's manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")

		return withStore(cmd, path, func(ctx context.Context, container *di.Container, store *entities.Store) error {
			ids, err := container.Manager.ListNodeIDs(ctx, store.ID())
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"id":           store.ID().String(),
				"name":         store.Name(),
				"root_node_id": store.RootNodeID().String(),
				"node_count":   len(ids),
				"sync_state":   store.SyncState(),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		})
	},
}

// withStore opens the store at path, runs fn and closes everything down
// again. CLI store commands are one-shot: open, act, flush, close.
func withStore(cmd *cobra.Command, path string, fn func(context.Context, *di.Container, *entities.Store) error) error {
	container, err := newContainer("error")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer container.Shutdown(context.Background())
	defer container.Manager.CloseAll(ctx)

	store, err := container.Manager.OpenStore(ctx, entities.NewLocalLocation(path))
	if err != nil {
		return err
	}
	if err := fn(ctx, container, store); err != nil {
		return err
	}
	return container.Manager.Flush(ctx, store.ID())
}

func init() {
	storeCreateCmd.Flags().String("path", "", "directory to create the store in")
	storeCreateCmd.Flags().String("name", "", "store display name")
	storeCreateCmd.MarkFlagRequired("path")
	storeCreateCmd.MarkFlagRequired("name")

	storeInfoCmd.Flags().String("path", "", "store directory")
	storeInfoCmd.MarkFlagRequired("path")

	storeCmd.AddCommand(storeCreateCmd, storeInfoCmd)
	rootCmd.AddCommand(storeCmd)
}
