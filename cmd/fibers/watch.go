package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/vango-dev/fibers/internal/errors"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/protocol"
	"github.com/vango-dev/fibers/pkg/render"
	"github.com/vango-dev/fibers/pkg/server"
)

type watchOptions struct {
	once   bool
	pretty bool
	json   bool
}

func watchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch URL",
		Short: "Follow a server's frame stream and print the mirrored tree",
		Long: `Connect to the /ws endpoint of "fibers serve", rebuild the host tree
from the snapshot and patches frames, and print it after every frame.

Examples:
  fibers watch localhost:8080
  fibers watch ws://localhost:8080/ws --once --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.once, "once", false, "Exit after the snapshot")
	cmd.Flags().BoolVarP(&opts.pretty, "pretty", "p", false, "Indent the HTML output")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the tree as JSON")

	return cmd
}

// streamURL turns "host:port", "http://host" or "ws://host/ws" into a
// WebSocket URL for the stream endpoint.
func streamURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

func runWatch(ctx context.Context, cmd *cobra.Command, target string, opts watchOptions) error {
	wsURL, err := streamURL(target)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	out := cmd.OutOrStdout()
	mirror := server.NewMirror()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		err = mirror.ApplyBytes(msg)
		var em *protocol.ErrorMessage
		if stderrors.As(err, &em) {
			errors.Fprint(cmd.ErrOrStderr(), errors.New(em.Code).WithDetail(em.Message))
			continue
		}
		if err != nil {
			return err
		}

		tree, _ := mirror.Tree()
		if err := printTree(out, tree, opts); err != nil {
			return err
		}
		if opts.once {
			return nil
		}
	}
}

func printTree(w io.Writer, tree memory.Tree, opts watchOptions) error {
	if opts.json {
		return json.NewEncoder(w).Encode(tree)
	}
	if err := render.NewRenderer(render.Config{Pretty: opts.pretty}).Children(w, tree); err != nil {
		return err
	}
	if !opts.pretty {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}
