// Package rendezvous hands out participant ids and maps them to the address
// each participant's link listener is reachable on.
package rendezvous

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
)

var ErrNotFound = errors.New("participant not registered")
var ErrStopped = errors.New("registry stopped")

const (
	codeLength  = 6
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateCode returns a random participant id.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

type Entry struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

type Msg interface{ isRegistryMsg() }

// Register assigns a fresh id to addr.
type Register struct {
	Addr  string
	Reply chan RegisterResult
}

type RegisterResult struct {
	Entry Entry
	Err   error
}

type Lookup struct {
	ID    string
	Reply chan *Entry // nil when unknown
}

type Remove struct {
	ID    string
	Reply chan bool
}

type Shutdown struct{}

func (Register) isRegistryMsg() {}
func (Lookup) isRegistryMsg()   {}
func (Remove) isRegistryMsg()   {}
func (Shutdown) isRegistryMsg() {}

// Registry owns the id table on a single goroutine.
type Registry struct {
	inbox   chan Msg
	entries map[string]Entry
	ctx     context.Context
	cancel  context.CancelFunc

	generate func() (string, error)
}

func NewRegistry(parent context.Context) *Registry {
	return newRegistry(parent, GenerateCode)
}

func newRegistry(parent context.Context, generate func() (string, error)) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan Msg, 64),
		entries:  make(map[string]Entry),
		ctx:      ctx,
		cancel:   cancel,
		generate: generate,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Register:
				msg.Reply <- r.register(msg.Addr)

			case Lookup:
				if e, ok := r.entries[msg.ID]; ok {
					msg.Reply <- &e
					break
				}
				msg.Reply <- nil

			case Remove:
				_, ok := r.entries[msg.ID]
				delete(r.entries, msg.ID)
				msg.Reply <- ok

			case Shutdown:
				clear(r.entries)
				r.cancel()
				return
			}
		}
	}
}

// register retries on collision until it finds an unused id.
func (r *Registry) register(addr string) RegisterResult {
	for {
		id, err := r.generate()
		if err != nil {
			return RegisterResult{Err: err}
		}
		if _, taken := r.entries[id]; taken {
			continue
		}
		e := Entry{ID: id, Addr: addr}
		r.entries[id] = e
		return RegisterResult{Entry: e}
	}
}

// Helpers for callers outside the loop.

func (r *Registry) Register(ctx context.Context, addr string) (Entry, error) {
	reply := make(chan RegisterResult, 1)
	if err := r.post(ctx, Register{Addr: addr, Reply: reply}); err != nil {
		return Entry{}, err
	}
	res, err := wait(ctx, r.ctx, reply)
	if err != nil {
		return Entry{}, err
	}
	return res.Entry, res.Err
}

func (r *Registry) Lookup(ctx context.Context, id string) (Entry, error) {
	reply := make(chan *Entry, 1)
	if err := r.post(ctx, Lookup{ID: id, Reply: reply}); err != nil {
		return Entry{}, err
	}
	e, err := wait(ctx, r.ctx, reply)
	if err != nil {
		return Entry{}, err
	}
	if e == nil {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

func (r *Registry) Remove(ctx context.Context, id string) error {
	reply := make(chan bool, 1)
	if err := r.post(ctx, Remove{ID: id, Reply: reply}); err != nil {
		return err
	}
	ok, err := wait(ctx, r.ctx, reply)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *Registry) Stop() {
	select {
	case r.inbox <- Shutdown{}:
	case <-r.ctx.Done():
	}
}

func (r *Registry) post(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrStopped
	}
}

func wait[T any](ctx, loop context.Context, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-loop.Done():
		return zero, ErrStopped
	}
}
