// Command songlist-master is the cluster's single write-and-query client:
// it dials every replica named on its command line, tracks which one is
// currently announcing itself coordinator, and sends add/delete/get
// requests to that one — the role pkg/room's handleJoinMaster and
// announceCoordinatorToMaster exist to serve. It is deliberately not a
// room.Room: the master never votes, never heartbeats, and never runs the
// 3PC state machine, so it talks to replicas over a bare socket and
// parses the wire's master-facing verbs itself.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cluso-labs/songlist3pc/pkg/authtoken"
	"github.com/cluso-labs/songlist3pc/pkg/logging"
	"github.com/cluso-labs/songlist3pc/pkg/transport"
)

type masterClient struct {
	mu          sync.Mutex
	socks       map[string]transport.Socket
	coordinator string
	log         logging.Logger
}

func newMasterClient(log logging.Logger) *masterClient {
	return &masterClient{socks: make(map[string]transport.Socket), log: log}
}

func (c *masterClient) connect(factory transport.SocketFactory, id, addr string) error {
	sock, err := factory.NewPairSocket()
	if err != nil {
		return fmt.Errorf("master: new socket for %s: %w", id, err)
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return fmt.Errorf("master: dial %s at %s: %w", id, addr, err)
	}
	c.mu.Lock()
	c.socks[id] = sock
	c.mu.Unlock()
	go c.readLoop(id, sock)
	return nil
}

func (c *masterClient) readLoop(id string, sock transport.Socket) {
	for {
		data, err := sock.Recv()
		if err != nil {
			c.log.Warn("replica link dropped", logging.String("peer", id), logging.Error(err))
			return
		}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			c.handleLine(id, scanner.Text())
		}
	}
}

func (c *masterClient) handleLine(from, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "coordinator":
		if len(fields) == 2 {
			c.mu.Lock()
			c.coordinator = fields[1]
			c.mu.Unlock()
			c.log.Info("coordinator announced", logging.String("id", fields[1]))
		}
	default:
		fmt.Printf("[%s] %s\n", from, line)
	}
}

// send writes line to the known coordinator, or to every connected
// replica if none has announced itself yet — the same bootstrap window
// pkg/room's DetermineCoordinator timer covers on the replica side.
func (c *masterClient) send(line string) error {
	c.mu.Lock()
	coordinator := c.coordinator
	targets := make(map[string]transport.Socket, len(c.socks))
	for id, sock := range c.socks {
		targets[id] = sock
	}
	c.mu.Unlock()

	if coordinator != "" {
		if sock, ok := targets[coordinator]; ok {
			return sock.Send(append([]byte(line), '\n'))
		}
	}
	var firstErr error
	for id, sock := range targets {
		if err := sock.Send(append([]byte(line), '\n')); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("master: send to %s: %w", id, err)
		}
	}
	return firstErr
}

func main() {
	replicasFlag := flag.String("replicas", "", "Comma-separated id=addr list of replicas to connect to")
	addCmd := flag.String("add", "", "name=url of a song to add")
	deleteCmd := flag.String("delete", "", "name of a song to delete")
	getCmd := flag.String("get", "", "name of a song to look up")
	fullState := flag.Bool("fullstate", false, "dump the coordinator's entire songlist")
	watch := flag.Bool("watch", false, "stay connected and print every line received")
	secret := flag.String("secret", "", "Shared secret to mint a session token with, for logging/audit only")
	flag.Parse()

	logger := logging.NewDefaultLogger()

	factory, err := newSocketFactory()
	if err != nil {
		log.Fatalf("songlist-master: socket factory: %v", err)
	}

	client := newMasterClient(logger)
	for _, peer := range parsePeers(*replicasFlag) {
		if err := client.connect(factory, peer.id, peer.addr); err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
	}

	if *secret != "" {
		mgr, err := authtoken.NewManager(*secret, time.Hour)
		if err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
		token, err := mgr.IssueToken("songlist-master-cli")
		if err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
		logger.Info("session token issued", logging.String("token", token))
	}

	// Give coordinator announcements a moment to arrive before issuing a
	// write, mirroring the replica-side bootstrap delay.
	time.Sleep(300 * time.Millisecond)

	switch {
	case *addCmd != "":
		parts := strings.SplitN(*addCmd, "=", 2)
		if len(parts) != 2 {
			log.Fatalf("songlist-master: -add wants name=url")
		}
		if err := client.send(fmt.Sprintf("add %s %s", parts[0], parts[1])); err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
	case *deleteCmd != "":
		if err := client.send(fmt.Sprintf("delete %s", *deleteCmd)); err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
	case *getCmd != "":
		if err := client.send(fmt.Sprintf("get %s", *getCmd)); err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
	case *fullState:
		if err := client.send("fullstaterequest-master"); err != nil {
			log.Fatalf("songlist-master: %v", err)
		}
	}

	if *watch || *addCmd != "" || *deleteCmd != "" || *getCmd != "" || *fullState {
		wait := 2 * time.Second
		if *watch {
			wait = 365 * 24 * time.Hour
		}
		time.Sleep(wait)
	}

	os.Exit(0)
}

type peerAddr struct{ id, addr string }

func parsePeers(raw string) []peerAddr {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []peerAddr
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, peerAddr{id: parts[0], addr: parts[1]})
	}
	return out
}
