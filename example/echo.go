// Command echo demonstrates an IPC echo service: a listener serving
// every peer that connects, and a client exchanging a few messages
// with it over the same named channel.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zereker/ipc"
)

// request and reply travel as CBOR payloads inside the frames.
type request struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
}

type reply struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
}

func serve(ctx context.Context, listener *ipc.Listener) error {
	return listener.Serve(ctx, func(ctx context.Context, conn *ipc.Conn) error {
		for {
			var req request
			if err := conn.ReceiveContext(ctx, &req); err != nil {
				if errors.Is(err, ipc.ErrConnectionClosed) || ctx.Err() != nil {
					return nil
				}
				return err
			}
			if err := conn.SendContext(ctx, reply{Seq: req.Seq, Text: req.Text}); err != nil {
				return err
			}
		}
	})
}

func runClient(ctx context.Context, name string) error {
	conn, err := ipc.DialContext(ctx, name)
	if err != nil {
		return err
	}
	defer conn.Close()

	for seq := uint64(1); seq <= 3; seq++ {
		var echoed reply
		if err := conn.ExchangeContext(ctx, request{Seq: seq, Text: "hello"}, &echoed); err != nil {
			return err
		}
		slog.Info("echoed", "seq", echoed.Seq, "text", echoed.Text)
	}
	return nil
}

func main() {
	const name = "ipc-echo-demo"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down...")
		cancel()
	}()

	listener, err := ipc.Listen(name)
	if err != nil {
		slog.Error("failed to listen", "error", err)
		os.Exit(1)
	}

	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, listener)
	}()

	clientCtx, clientCancel := context.WithTimeout(ctx, 5*time.Second)
	defer clientCancel()
	if err := runClient(clientCtx, name); err != nil {
		slog.Error("client error", "error", err)
	}

	cancel()
	listener.Close()
	if err := <-served; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("serve error", "error", err)
	}
}
