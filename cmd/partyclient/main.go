package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Martbul/outDrinkMe-sub001/internal/api"
	"github.com/Martbul/outDrinkMe-sub001/internal/config"
	"github.com/Martbul/outDrinkMe-sub001/internal/game"
	"github.com/Martbul/outDrinkMe-sub001/internal/game/kingscup"
	"github.com/Martbul/outDrinkMe-sub001/internal/game/mafia"
	"github.com/Martbul/outDrinkMe-sub001/internal/session"
	"github.com/Martbul/outDrinkMe-sub001/internal/transport"
)

func main() {
	name := flag.String("name", "guest", "display name")
	create := flag.String("create", "", "create a session of this game type")
	join := flag.String("join", "", "join an existing session by id")
	list := flag.Bool("list", false, "list public sessions and exit")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load()
	client := api.NewClient(cfg.APIBaseURL)
	tokens := api.StaticToken(cfg.Token)

	registry := game.NewRegistry()
	registry.Register(kingscup.Type, kingscup.Reconciler{})
	registry.Register(mafia.Type, mafia.Reconciler{})

	dial := func(ctx context.Context, sessionID, token string) (session.Channel, error) {
		return transport.Dial(ctx, cfg.WSBaseURL, sessionID, token, log)
	}

	ctx := context.Background()

	if *list {
		sessions, err := client.ListPublicSessions(ctx)
		if err != nil {
			log.Fatal("list sessions", zap.Error(err))
		}
		for _, s := range sessions {
			fmt.Printf("%s  %-10s host=%s players=%d\n", s.SessionID, s.GameType, s.HostUsername, s.PlayerCount)
		}
		return
	}

	ctrl := session.NewController(ctx, client, tokens, dial, registry, session.Identity{Username: *name}, log)
	defer ctrl.Shutdown()

	switch {
	case *create != "":
		if err := ctrl.CreateSession(ctx, *create); err != nil {
			log.Fatal("create session", zap.Error(err))
		}
	case *join != "":
		if err := ctrl.JoinSession(ctx, *join); err != nil {
			log.Fatal("join session", zap.Error(err))
		}
	default:
		fmt.Fprintln(os.Stderr, "pass -create <gameType>, -join <sessionId> or -list")
		os.Exit(2)
	}

	snaps := make(chan session.Snapshot, 8)
	ctrl.Subscribe("cli", snaps)
	go func() {
		for snap := range snaps {
			fmt.Printf("[%s] session=%s players=%d\n", snap.Stage, snap.Session.SessionID, len(snap.Players))
			if len(snap.Messages) > 0 {
				fmt.Println("  " + snap.Messages[0])
			}
			if snap.Err != nil {
				fmt.Println("  connection lost:", snap.Err)
			}
		}
	}()

	// Stdin lines become chat; "/start", "/reset" and "/quit" drive the session.
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch line := sc.Text(); line {
		case "/start":
			ctrl.StartGame()
		case "/reset":
			ctrl.ResetGame()
		case "/quit":
			ctrl.Leave()
			return
		default:
			ctrl.SendChat(line)
		}
	}
}
