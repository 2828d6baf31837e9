// Package dnsgateway answers DNS TXT queries from the namespace registry.
//
// A query for "foo.web3." is hashed to its node; the node's resolver supplies
//
//	addr=0x...           when an address is set
//	contenthash=0x...    when a content hash is set
//	name=...             when a reverse name is set
//	<key>=<value>        for every configured text key that is set
//
// The answer TTL is the node's registry TTL. Answers are cached until that TTL
// runs out on the chain clock; nodes with TTL 0 are never cached. Nodes with
// no registry record get NXDOMAIN.
package dnsgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/metrics"
	"github.com/ruteri/namespace-registry/namehash"
)

// maxTXTChunk is the longest character-string a TXT record can carry.
const maxTXTChunk = 255

type Config struct {
	// Zone restricts answers to names under it, e.g. "web3". Empty answers every name.
	Zone string
	// TextKeys lists the text records exported per name.
	TextKeys  []string
	CacheSize int
}

func DefaultConfig() Config {
	return Config{
		TextKeys:  []string{"url", "email", "description", "avatar"},
		CacheSize: 4096,
	}
}

type answer struct {
	exists  bool
	txt     []string
	expires uint64
}

// Gateway is a dns.Handler over a registry and the resolvers its records name.
type Gateway struct {
	chain    *chain.Chain
	registry interfaces.NamespaceReader
	cfg      Config
	cache    *lru.Cache
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu     sync.Mutex
	server *dns.Server
}

func New(c *chain.Chain, registry interfaces.NamespaceReader, cfg Config, m *metrics.Metrics, log *slog.Logger) (*Gateway, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create answer cache: %w", err)
	}
	cfg.Zone = strings.Trim(dns.CanonicalName(cfg.Zone), ".")

	return &Gateway{
		chain:    c,
		registry: registry,
		cfg:      cfg,
		cache:    cache,
		metrics:  m,
		log:      log,
	}, nil
}

// Lookup returns the TXT strings and remaining TTL for a dotted name.
// The returned error wraps interfaces.ErrNotFound if the name has no record.
func (g *Gateway) Lookup(name string) ([]string, uint32, error) {
	name = strings.TrimSuffix(name, ".")
	if !g.inZone(name) {
		return nil, 0, fmt.Errorf("%w: %s is outside zone %s", interfaces.ErrNotFound, name, g.cfg.Zone)
	}
	node := namehash.NameHash(name)

	var (
		ans answer
		now uint64
	)
	err := g.chain.View(func() error {
		now = g.chain.Now()
		if cached, ok := g.cache.Get(node); ok {
			if a := cached.(answer); a.expires > now {
				ans = a
				return nil
			}
			g.cache.Remove(node)
		}

		var err error
		ans, err = g.load(node, now)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	if !ans.exists {
		return nil, 0, fmt.Errorf("%w: no record for %s", interfaces.ErrNotFound, name)
	}

	ttl := uint32(0)
	if ans.expires > now {
		ttl = uint32(min(ans.expires-now, math.MaxUint32))
	}
	return ans.txt, ttl, nil
}

func (g *Gateway) inZone(name string) bool {
	if g.cfg.Zone == "" {
		return true
	}
	lower := strings.ToLower(name)
	return lower == g.cfg.Zone || strings.HasSuffix(lower, "."+g.cfg.Zone)
}

// load must run under the chain's read lock.
func (g *Gateway) load(node common.Hash, now uint64) (answer, error) {
	if !g.registry.RecordExists(node) {
		return answer{}, nil
	}
	ans := answer{exists: true}

	if resolverAddr := g.registry.Resolver(node); resolverAddr != (common.Address{}) {
		res, err := chain.Resolve[interfaces.RecordResolver](g.chain, resolverAddr)
		if err != nil {
			return answer{}, err
		}
		ans.txt = g.records(res, node)
	}

	if ttl := g.registry.TTL(node); ttl > 0 {
		if ttl > math.MaxUint64-now {
			ttl = math.MaxUint64 - now
		}
		ans.expires = now + ttl
		g.cache.Add(node, ans)
	}
	return ans, nil
}

func (g *Gateway) records(res interfaces.RecordResolver, node common.Hash) []string {
	var txt []string
	if addr := res.Addr(node); addr != (common.Address{}) {
		txt = append(txt, "addr="+addr.Hex())
	}
	if hash := res.Contenthash(node); len(hash) > 0 {
		txt = append(txt, "contenthash="+hexutil.Encode(hash))
	}
	if name := res.Name(node); name != "" {
		txt = append(txt, "name="+name)
	}
	for _, key := range g.cfg.TextKeys {
		if value := res.Text(node, key); value != "" {
			txt = append(txt, key+"="+value)
		}
	}
	return txt
}

// ServeDNS answers TXT and ANY questions; other types get an empty NOERROR.
func (g *Gateway) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = true

	for _, q := range req.Question {
		txt, ttl, err := g.Lookup(q.Name)
		if errors.Is(err, interfaces.ErrNotFound) {
			resp.Rcode = dns.RcodeNameError
			break
		}
		if err != nil {
			g.log.Error("DNS lookup failed", "name", q.Name, "err", err)
			resp.Rcode = dns.RcodeServerFailure
			break
		}
		if q.Qtype != dns.TypeTXT && q.Qtype != dns.TypeANY {
			continue
		}
		for _, s := range txt {
			resp.Answer = append(resp.Answer, &dns.TXT{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: ttl},
				Txt: splitTXT(s),
			})
		}
	}

	g.metrics.ObserveDNSQuery(resp.Rcode)
	if err := w.WriteMsg(resp); err != nil {
		g.log.Warn("Failed to write DNS response", "err", err)
	}
}

// splitTXT breaks s into character-strings a TXT record can hold.
func splitTXT(s string) []string {
	var chunks []string
	for len(s) > maxTXTChunk {
		chunks = append(chunks, s[:maxTXTChunk])
		s = s[maxTXTChunk:]
	}
	return append(chunks, s)
}

// Serve answers queries arriving on pc until Shutdown. It returns once the
// server is ready to receive.
func (g *Gateway) Serve(pc net.PacketConn) error {
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           g,
		NotifyStartedFunc: func() { close(started) },
	}

	g.mu.Lock()
	g.server = srv
	g.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ActivateAndServe() }()

	select {
	case <-started:
		g.log.Info("DNS gateway listening", "addr", pc.LocalAddr().String(), "zone", g.cfg.Zone)
		return nil
	case err := <-errCh:
		return err
	}
}

// ListenAndServe binds a UDP socket on addr and calls Serve.
func (g *Gateway) ListenAndServe(addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	return g.Serve(pc)
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.server = nil
	g.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.ShutdownContext(ctx)
}
