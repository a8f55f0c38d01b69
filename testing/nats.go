package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled and
// returns it together with a connected client.
//
// The server listens on a random port and stores JetStream data in the test's
// temporary directory; both the connection and the server are shut down via
// t.Cleanup when the test finishes. Safe for parallel tests.
//
// Parameters:
//   - t: Testing context for failure reporting and cleanup
//
// Returns:
//   - *server.Server: The embedded NATS server
//   - *nats.Conn: Client connected to it
func StartEmbeddedNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // random available port
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready within timeout")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("connect to embedded NATS server: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// ConnectN opens n additional client connections to the embedded server, one
// per simulated group member. Connections are closed via t.Cleanup.
//
// Parameters:
//   - t: Testing context
//   - ns: Embedded server from StartEmbeddedNATS
//   - n: Number of connections to open
//
// Returns:
//   - []*nats.Conn: n connected clients
func ConnectN(t *testing.T, ns *server.Server, n int) []*nats.Conn {
	t.Helper()

	conns := make([]*nats.Conn, n)
	for i := range conns {
		nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
		if err != nil {
			t.Fatalf("connect member %d: %v", i, err)
		}
		conns[i] = nc
		t.Cleanup(nc.Close)
	}

	return conns
}
