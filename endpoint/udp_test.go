package endpoint

import (
	"testing"
	"time"
)

func TestBindConnectSendRecv(t *testing.T) {
	a, err := Bind("127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind a: %v", err)
	}
	defer a.Close()

	b, err := Bind("127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind b: %v", err)
	}
	defer b.Close()

	if err := a.Connect(b.LocalAddr()); err != nil {
		t.Fatalf("a.Connect: %v", err)
	}
	if err := b.Connect(a.LocalAddr()); err != nil {
		t.Fatalf("b.Connect: %v", err)
	}

	msg := []byte("hello pktudp")
	if err := a.Send(msg); err != nil {
		t.Fatalf("a.Send: %v", err)
	}

	buf := make([]byte, 64)
	if err := b.SetReadTimeout(time.Second); err != nil {
		t.Fatalf("SetReadTimeout: %v", err)
	}
	n, err := b.Recv(buf)
	if err != nil {
		t.Fatalf("b.Recv: %v", err)
	}
	if string(buf[:n]) != string(msg) {
		t.Fatalf("got %q, want %q", buf[:n], msg)
	}
}

func TestRecvTimeout(t *testing.T) {
	a, err := Bind("127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer a.Close()

	b, err := Bind("127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer b.Close()

	if err := a.Connect(b.LocalAddr()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := a.SetReadTimeout(10 * time.Millisecond); err != nil {
		t.Fatalf("SetReadTimeout: %v", err)
	}

	buf := make([]byte, 64)
	_, err = a.Recv(buf)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRecvFrom(t *testing.T) {
	listener, err := Bind("127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer listener.Close()

	client, err := Bind("127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer client.Close()

	if err := client.Connect(listener.LocalAddr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Send([]byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := listener.SetReadTimeout(time.Second); err != nil {
		t.Fatalf("SetReadTimeout: %v", err)
	}
	buf := make([]byte, 64)
	n, from, err := listener.RecvFrom(buf)
	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if string(buf[:n]) != "hi" {
		t.Fatalf("got %q", buf[:n])
	}
	if from.Port != client.LocalAddr().Port {
		t.Fatalf("got sender port %d, want %d", from.Port, client.LocalAddr().Port)
	}
}
