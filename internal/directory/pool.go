package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/jackc/puddle/v2"
)

// PoolConfig describes how to reach and authenticate against the directory.
type PoolConfig struct {
	URL          string
	BindDN       string
	BindPassword string
	Size         int
	Timeout      time.Duration
}

// Pool lends bound LDAP connections. Connections are dialled lazily and
// discarded after a network error.
type Pool struct {
	p *puddle.Pool[*ldap.Conn]
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("directory: url is required")
	}
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	p, err := puddle.NewPool(&puddle.Config[*ldap.Conn]{
		Constructor: func(ctx context.Context) (*ldap.Conn, error) {
			return dial(cfg)
		},
		Destructor: func(c *ldap.Conn) {
			c.Close()
		},
		MaxSize: int32(cfg.Size),
	})
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

func dial(cfg PoolConfig) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout}))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	conn.SetTimeout(cfg.Timeout)
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind %s: %w", cfg.BindDN, err)
		}
	}
	return conn, nil
}

// WithConn runs fn on one pooled connection.
func (p *Pool) WithConn(ctx context.Context, fn func(Conn) error) error {
	res, err := p.p.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire directory connection: %w", err)
	}

	err = fn(res.Value())
	if broken(res.Value(), err) {
		res.Destroy()
	} else {
		res.Release()
	}
	return err
}

// Close destroys idle connections and waits for borrowed ones to return.
func (p *Pool) Close() {
	p.p.Close()
}

func broken(c *ldap.Conn, err error) bool {
	if c.IsClosing() {
		return true
	}
	return err != nil && ldap.IsErrorWithCode(err, ldap.ErrorNetwork)
}
