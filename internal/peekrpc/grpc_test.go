package peekrpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/flowguru/foundationdb/internal/wire"
)

// stubServer is an in-process PeekServiceServer double, grounded on the
// teacher's streamsStub test pattern.
type stubServer struct {
	reply *PeekReply
	err   error
	got   *PeekRequest
}

func (s *stubServer) Peek(ctx context.Context, req *PeekRequest) (*PeekReply, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func startGRPCStub(t *testing.T, srv PeekServiceServer) (addr string, stop func()) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer()
	RegisterPeekServiceServer(gs, srv)
	done := make(chan struct{})
	go func() {
		_ = gs.Serve(l)
		close(done)
	}()
	stop = func() {
		gs.GracefulStop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			gs.Stop()
		}
	}
	return l.Addr().String(), stop
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}

func TestGRPCPeek_RoundTrip(t *testing.T) {
	want := &PeekReply{
		Data:            wire.EncodeVersionGroup(nil, 42, []wire.VSM{{Version: 42, Subsequence: 1, Message: wire.Message{Type: wire.MessageMutation, Payload: []byte("hi")}}}),
		BeginVersion:    42,
		EndVersion:      43,
		MaxKnownVersion: 100,
	}
	stub := &stubServer{reply: want}
	addr, stop := startGRPCStub(t, stub)
	defer stop()

	client := NewGRPCClient(dial(t, addr))

	req := &PeekRequest{
		DebugID:      uuid.New(),
		TeamID:       "team-a",
		BeginVersion: 42,
		EndVersion:   EndVersionUnbounded,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := client.Peek(ctx, req)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got.BeginVersion != want.BeginVersion || got.MaxKnownVersion != want.MaxKnownVersion {
		t.Fatalf("reply = %+v, want %+v", got, want)
	}
	if stub.got.TeamID != "team-a" || stub.got.BeginVersion != 42 {
		t.Fatalf("server saw request %+v", stub.got)
	}
}

func TestGRPCPeek_SentinelErrorsSurviveTheWire(t *testing.T) {
	cases := []error{ErrEndOfStream, ErrTimeout, ErrOperationObsolete}
	for _, wantErr := range cases {
		stub := &stubServer{err: wantErr}
		addr, stop := startGRPCStub(t, stub)

		client := NewGRPCClient(dial(t, addr))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		_, err := client.Peek(ctx, &PeekRequest{TeamID: "team-a"})
		if !errors.Is(err, wantErr) {
			t.Fatalf("err = %v, want %v", err, wantErr)
		}
		cancel()
		stop()
	}
}
