// Command ws_smoke opens two connections against a running relay, joins both
// into one room and checks that a data event crosses between them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomcast-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "smoke", "room name")
	text := flag.String("text", "hello from smoke test", "payload to relay")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sender, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	receiver, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial receiver: %w", err)
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	join := func(conn *websocket.Conn, id string) error {
		if err := wsjson.Write(ctx, conn, proto.Join{Type: proto.TypeJoin, ID: id, Room: *room}); err != nil {
			return fmt.Errorf("join as %s: %w", id, err)
		}
		var joined proto.Joined
		if err := wsjson.Read(ctx, conn, &joined); err != nil {
			return fmt.Errorf("read joined for %s: %w", id, err)
		}
		return nil
	}

	if err := join(sender, "smoke-sender"); err != nil {
		return err
	}
	if err := join(receiver, "smoke-receiver"); err != nil {
		return err
	}

	// The sender hears about the receiver joining; drain that frame.
	var drain json.RawMessage
	if err := wsjson.Read(ctx, sender, &drain); err != nil {
		return fmt.Errorf("drain sender: %w", err)
	}

	ev := proto.Data{
		Type: proto.TypeData,
		To:   proto.TargetAll(),
		From: "smoke-sender",
		Data: *text,
	}
	if err := wsjson.Write(ctx, sender, ev); err != nil {
		return fmt.Errorf("send data: %w", err)
	}

	var got proto.Data
	if err := wsjson.Read(ctx, receiver, &got); err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	if got.Type != proto.TypeData || got.Data != *text || got.From != "smoke-sender" {
		return fmt.Errorf("unexpected frame: %+v", got)
	}

	fmt.Println("ws_smoke: ok")
	return nil
}
