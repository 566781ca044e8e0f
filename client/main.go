// Command client is a terminal peer: it joins a room on the relay and plays
// the built-in games from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wfunc/roomsync/bus"
	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/game"
	"github.com/wfunc/roomsync/lifecycle"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/peer"
	"github.com/wfunc/roomsync/presence"
	"github.com/wfunc/roomsync/synchronizer"
	"github.com/wfunc/roomsync/timer"
)

const help = `commands:
  games            list games
  select <game>    start a game for the room
  sit <seat>       take seat 1 or 2
  move <n>         play column / cell / throw (1 rock, 2 paper, 3 scissors)
  leave            give up your seat
  menu             back to the game selector
  show             redraw
  quit`

func render(v synchronizer.View) {
	fmt.Printf("\n== %s ==\n", v.GameName)
	for _, s := range v.Seats {
		name := "(empty)"
		if s.Occupant != nil {
			name = s.Occupant.Name
		}
		marks := ""
		if s.Mine {
			marks += " *you*"
		}
		if s.Away {
			marks += " (away)"
		}
		if s.Active {
			marks += " <"
		}
		fmt.Printf("seat %d: %s%s\n", s.Seat, name, marks)
	}
	fmt.Print(v.Board)
	fmt.Printf("-- %s --\n> ", v.Status)
}

// participant builds the local identity. The id comes from client.user_id so
// a reconnecting user is recognised in restored seats; only when it is unset
// is a random one generated, reported by the second result.
func participant(cc config.ClientConfig) (game.Participant, bool) {
	p := game.Participant{ID: cc.UserID, Name: cc.Name, Color: cc.Color}
	if p.ID != "" {
		return p, false
	}
	p.ID = uuid.New().String()
	return p, true
}

func main() {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger.InitWith(l)
	defer logger.Sync()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	cc := cfg.Client
	if cc.Room == "" {
		cc.Room = "lobby"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	loop := peer.NewLoop(64)
	timers := timer.NewTimerManager()
	defer timers.Stop()

	ws, err := bus.Dial(ctx, cc.ServerURL, loop.Post)
	if err != nil {
		logger.Log.Fatalf("Dial %s failed: %v", cc.ServerURL, err)
	}
	defer ws.Close()

	self, generated := participant(cc)
	if generated {
		logger.Log.Infof("No client.user_id configured; using %s. Set ROOMSYNC_CLIENT_USER_ID=%s to keep your seat after a reconnect.", self.ID, self.ID)
	}
	pctx := &peer.Context{
		RoomID:    cc.Room,
		Self:      self,
		Bus:       ws,
		Scheduler: peer.LoopScheduler{Timers: timers, Loop: loop},
		Resize: func(s game.Size) {
			logger.Log.Debugf("panel resize %dx%d", s.Width, s.Height)
		},
	}

	pres := presence.New()
	pres.Subscribe(ws)
	defer pres.Close()

	mgr := lifecycle.New(lifecycle.Config{
		Context:  pctx,
		Presence: pres,
		Renderer: synchronizer.RenderFunc(render),
		OnMenu:   func() { fmt.Print("\nmenu: type 'games' then 'select <game>'\n> ") },
	})

	go loop.Run(ctx)
	go func() {
		if err := ws.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Errorf("Connection lost: %v", err)
		}
		cancel()
	}()
	go ws.Heartbeat(ctx, cfg.Server.HeartbeatEvery)

	join := network.JoinRoom{RoomID: cc.Room, UserID: self.ID, UserName: self.Name, UserColor: self.Color}
	if err := ws.Emit(network.EventJoinRoom, join); err != nil {
		logger.Log.Fatalf("Join room %s failed: %v", cc.Room, err)
	}
	fmt.Printf("joined room %s as %s\n%s\n> ", cc.Room, self.Name, help)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				cancel()
				continue
			}
			quit := false
			loop.Do(func() { quit = command(mgr, line) })
			if quit {
				// sends LEAVE while the socket is still open
				loop.Do(mgr.Close)
				return
			}
		}
	}
}

// command runs one stdin line on the peer loop. It reports whether to quit.
func command(mgr *lifecycle.Manager, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		fmt.Print("> ")
		return false
	}
	arg := func() (int, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s needs a number", fields[0])
		}
		return strconv.Atoi(fields[1])
	}

	var err error
	g := mgr.Active()
	switch fields[0] {
	case "quit", "exit":
		return true
	case "games":
		fmt.Println(strings.Join(game.Builtin().IDs(), ", "))
	case "select":
		if len(fields) < 2 {
			err = fmt.Errorf("select needs a game id")
			break
		}
		err = mgr.SelectGame(fields[1])
	case "menu":
		mgr.ExitToMenu()
	case "sit", "move", "leave", "show":
		if g == nil {
			err = fmt.Errorf("no game running")
			break
		}
		switch fields[0] {
		case "sit":
			var n int
			if n, err = arg(); err == nil {
				err = g.Sit(game.SeatIndex(n))
			}
		case "move":
			var n int
			if n, err = arg(); err == nil {
				err = g.Move(n)
			}
		case "leave":
			err = g.Leave()
		case "show":
			render(g.View())
			return false
		}
	default:
		fmt.Println(help)
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	fmt.Print("> ")
	return false
}
