package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/domain/core/entities"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"github.com/joeleaver/pimble/infrastructure/di"
	"github.com/spf13/cobra"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Work with nodes in a store",
}

var nodeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("store")
		parent, _ := cmd.Flags().GetString("parent")
		title, _ := cmd.Flags().GetString("title")
		nodeType, _ := cmd.Flags().GetString("type")

		return withStore(cmd, path, func(ctx context.Context, container *di.Container, store *entities.Store) error {
			req := services.CreateNodeRequest{Type: nodeType, Title: title, Position: -1}
			if parent != "" {
				parentID, err := valueobjects.NewNodeIDFromString(parent)
				if err != nil {
					return fmt.Errorf("invalid parent id: %w", err)
				}
				req.ParentID = parentID
			}
			node, err := container.Manager.CreateNode(ctx, store.ID(), req)
			if err != nil {
				return err
			}
			fmt.Println(node.ID())
			return nil
		})
	},
}

var nodeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List a node's children (default: the root)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("store")
		parent, _ := cmd.Flags().GetString("parent")

		return withStore(cmd, path, func(ctx context.Context, container *di.Container, store *entities.Store) error {
			parentID := store.RootNodeID()
			if parent != "" {
				id, err := valueobjects.NewNodeIDFromString(parent)
				if err != nil {
					return fmt.Errorf("invalid parent id: %w", err)
				}
				parentID = id
			}
			children, err := container.Manager.GetChildren(ctx, store.ID(), parentID)
			if err != nil {
				return err
			}
			for _, child := range children {
				fmt.Printf("%s  %-10s  %s\n", child.ID(), child.Type(), child.Title())
			}
			return nil
		})
	},
}

var nodeCatCmd = &cobra.Command{
	Use:   "cat",
	Short: "Print a node's text",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("store")
		id, _ := cmd.Flags().GetString("id")

		return withStore(cmd, path, func(ctx context.Context, container *di.Container, store *entities.Store) error {
			nodeID, err := valueobjects.NewNodeIDFromString(id)
			if err != nil {
				return fmt.Errorf("invalid node id: %w", err)
			}
			text, err := container.Manager.NodeText(ctx, store.ID(), nodeID)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		})
	},
}

var nodeWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Replace a node's text from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("store")
		id, _ := cmd.Flags().GetString("id")

		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		return withStore(cmd, path, func(ctx context.Context, container *di.Container, store *entities.Store) error {
			nodeID, err := valueobjects.NewNodeIDFromString(id)
			if err != nil {
				return fmt.Errorf("invalid node id: %w", err)
			}
			return container.Manager.SetNodeText(ctx, store.ID(), nodeID, string(text))
		})
	},
}

var nodeRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Delete a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("store")
		id, _ := cmd.Flags().GetString("id")
		recursive, _ := cmd.Flags().GetBool("recursive")

		return withStore(cmd, path, func(ctx context.Context, container *di.Container, store *entities.Store) error {
			nodeID, err := valueobjects.NewNodeIDFromString(id)
			if err != nil {
				return fmt.Errorf("invalid node id: %w", err)
			}
			return container.Manager.DeleteNode(ctx, store.ID(), nodeID, recursive)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{nodeAddCmd, nodeLsCmd, nodeCatCmd, nodeWriteCmd, nodeRmCmd} {
		c.Flags().String("store", "", "store directory")
		c.MarkFlagRequired("store")
	}
	nodeAddCmd.Flags().String("parent", "", "parent node id (default: the root)")
	nodeAddCmd.Flags().String("title", "", "node title")
	nodeAddCmd.Flags().String("type", "", "node type (default: document)")

	nodeLsCmd.Flags().String("parent", "", "parent node id (default: the root)")

	for _, c := range []*cobra.Command{nodeCatCmd, nodeWriteCmd, nodeRmCmd} {
		c.Flags().String("id", "", "node id")
		c.MarkFlagRequired("id")
	}
	nodeRmCmd.Flags().Bool("recursive", false, "delete the whole subtree")

	nodeCmd.AddCommand(nodeAddCmd, nodeLsCmd, nodeCatCmd, nodeWriteCmd, nodeRmCmd)
	rootCmd.AddCommand(nodeCmd)
}
