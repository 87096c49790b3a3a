package db

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Katlearn/cablevision-form/internal/oxidb"
)

const dialTimeout = 5 * time.Second

// Pool is a round-robin set of OxiDB connections. Broken connections are
// replaced by the keepalive loop.
type Pool struct {
	addr     string
	mu       []sync.Mutex
	clients  []*oxidb.Client
	idx      uint64
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewPool opens size connections to addr and pings them every interval.
func NewPool(ctx context.Context, addr string, size int, interval time.Duration) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		addr:     addr,
		mu:       make([]sync.Mutex, size),
		clients:  make([]*oxidb.Client, size),
		interval: interval,
		stop:     make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := dial(ctx, addr)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	if interval > 0 {
		go p.keepalive()
	}
	return p, nil
}

func dial(ctx context.Context, addr string) (*oxidb.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return oxidb.Dial(ctx, addr)
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	i := int(n % uint64(len(p.clients)))
	p.mu[i].Lock()
	defer p.mu[i].Unlock()
	return p.clients[i]
}

func (p *Pool) Size() int { return len(p.clients) }

// Ping checks every connection once.
func (p *Pool) Ping(ctx context.Context) error {
	for i := range p.clients {
		p.mu[i].Lock()
		c := p.clients[i]
		p.mu[i].Unlock()
		if _, err := c.Ping(ctx); err != nil {
			return fmt.Errorf("pool: client %d: %w", i, err)
		}
	}
	return nil
}

func (p *Pool) reconnect(i int) {
	c, err := dial(context.Background(), p.addr)
	if err != nil {
		log.Printf("Warning: pool: reconnect client %d failed: %v", i, err)
		return
	}
	p.mu[i].Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu[i].Unlock()
	if old != nil {
		old.Close()
	}
}

func (p *Pool) keepalive() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				p.mu[i].Lock()
				c := p.clients[i]
				p.mu[i].Unlock()
				ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
				_, err := c.Ping(ctx)
				cancel()
				if err != nil {
					log.Printf("Warning: pool: client %d ping failed, reconnecting: %v", i, err)
					p.reconnect(i)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		for i := range p.clients {
			p.mu[i].Lock()
			if p.clients[i] != nil {
				p.clients[i].Close()
			}
			p.mu[i].Unlock()
		}
	})
}
