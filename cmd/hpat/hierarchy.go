package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/store"
)

// #region resolve
// resolveHierarchy picks the configured hierarchy source, falling back to
// the grammar's inline one.
func (a *app) resolveHierarchy(ctx context.Context, inline *hierarchy.Static) (*hierarchy.Static, error) {
	hc := a.cfg.Hierarchy
	switch {
	case hc.File != "":
		return hierarchy.LoadYAML(hc.File)

	case hc.Addr != "":
		client, err := hierarchy.Dial(hc.Addr)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		h, err := client.Snapshot(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "hierarchy from %s", hc.Addr)
		}
		return h, nil

	case hc.DB:
		st, err := store.Open(a.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		edges, err := hierarchy.NewSQLStore(st.DB())
		if err != nil {
			return nil, err
		}
		return edges.Snapshot()
	}

	if inline == nil {
		return hierarchy.None(), nil
	}
	return inline, nil
}

// #endregion resolve

// #region commands
func newHierarchyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hierarchy",
		Short: "Load or serve the concept hierarchy",
	}
	cmd.AddCommand(newHierarchyLoadCmd(a), newHierarchyServeCmd(a))
	return cmd
}

func newHierarchyLoadCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Import a hierarchy YAML file into the run database",
		Long: `Import every parent -> child edge of a hierarchy file into the
concept_edges table of the run database. Existing edges are kept.

Example:
  hpat hierarchy load -f hierarchy.yaml --db runs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hierarchy.LoadYAML(file)
			if err != nil {
				return err
			}
			st, err := store.Open(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			edges, err := hierarchy.NewSQLStore(st.DB())
			if err != nil {
				return err
			}
			n, err := edges.Import(h.Edges())
			if err != nil {
				return err
			}
			a.log.Info("hierarchy imported", zap.String("file", file), zap.Int("edges", n))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d edges into %s\n", n, a.cfg.Store.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "hierarchy YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newHierarchyServeCmd(a *app) *cobra.Command {
	var (
		addr string
		file string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the hierarchy over gRPC",
		Long: `Serve a hierarchy snapshot as hpat.hierarchy.v1.Hierarchy. The source
is --file when given, otherwise the configured hierarchy (file or db).

Example:
  hpat hierarchy serve --addr :7070 -f hierarchy.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				h   *hierarchy.Static
				err error
			)
			if file != "" {
				h, err = hierarchy.LoadYAML(file)
			} else {
				if a.cfg.Hierarchy.Addr != "" {
					return errors.New("hierarchy serve cannot proxy another service; use --file or hierarchy.db")
				}
				h, err = a.resolveHierarchy(ctx, nil)
			}
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrapf(err, "listen %s", addr)
			}
			return serve(ctx, lis, h, a.log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":7070", "listen address")
	cmd.Flags().StringVarP(&file, "file", "f", "", "hierarchy YAML file")
	return cmd
}

// serve blocks until ctx is done or the server fails.
func serve(ctx context.Context, lis net.Listener, h *hierarchy.Static, log *zap.Logger) error {
	srv := grpc.NewServer()
	hierarchy.RegisterHierarchyServer(srv, hierarchy.NewServer(h))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(lis) }()
	log.Info("hierarchy service listening", zap.String("addr", lis.Addr().String()))

	select {
	case <-ctx.Done():
		log.Info("shutting down hierarchy service")
		srv.GracefulStop()
		return nil
	case err := <-errc:
		return errors.Wrap(err, "serve")
	}
}

// #endregion commands
