// Package oxidbtest runs an in-memory stand-in for oxidb-server that speaks
// the same framed JSON protocol. It implements only the commands the oxidb
// client issues.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
)

type object struct {
	content     string
	contentType string
	metadata    map[string]string
}

type Server struct {
	ln    net.Listener
	wg    sync.WaitGroup
	conns map[net.Conn]struct{}
	done  bool

	mu          sync.Mutex
	nextID      int
	collections map[string][]map[string]any
	indexes     map[string][]string
	buckets     map[string]map[string]object
	failures    map[string]string
	commands    []string
}

// NewServer starts a server on a loopback port and stops it when the test
// ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{
		ln:          ln,
		conns:       make(map[net.Conn]struct{}),
		collections: make(map[string][]map[string]any),
		indexes:     make(map[string][]string),
		buckets:     make(map[string]map[string]object),
		failures:    make(map[string]string),
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops accepting, drops open connections and waits for handlers.
func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	s.done = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// FailNext makes the next cmd answer with an error reply.
func (s *Server) FailNext(cmd, msg string) {
	s.mu.Lock()
	s.failures[cmd] = msg
	s.mu.Unlock()
}

// Commands lists every command received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Docs returns a copy of a collection.
func (s *Server) Docs(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.collections[collection]...)
}

// Objects returns the keys stored in bucket.
func (s *Server) Objects(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.buckets[bucket]))
	for k := range s.buckets[bucket] {
		keys = append(keys, k)
	}
	return keys
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.done {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		var req map[string]any
		var resp map[string]any
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = fail("bad request: " + err.Error())
		} else {
			resp = s.handle(req)
		}
		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func ok(data any) map[string]any   { return map[string]any{"ok": true, "data": data} }
func fail(msg string) map[string]any { return map[string]any{"ok": false, "error": msg} }

func (s *Server) handle(req map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	s.commands = append(s.commands, cmd)
	if msg, found := s.failures[cmd]; found {
		delete(s.failures, cmd)
		return fail(msg)
	}

	collection, _ := req["collection"].(string)
	bucket, _ := req["bucket"].(string)
	key, _ := req["key"].(string)

	switch cmd {
	case "ping":
		return ok("pong")
	case "create_unique_index":
		field, _ := req["field"].(string)
		s.indexes[collection] = append(s.indexes[collection], field)
		return ok("ok")
	case "insert":
		doc, _ := req["doc"].(map[string]any)
		s.nextID++
		stored := make(map[string]any, len(doc)+1)
		for k, v := range doc {
			stored[k] = v
		}
		stored["_id"] = float64(s.nextID)
		s.collections[collection] = append(s.collections[collection], stored)
		return ok(map[string]any{"id": float64(s.nextID)})
	case "find_one":
		query, _ := req["query"].(map[string]any)
		for _, doc := range s.collections[collection] {
			if matches(doc, query) {
				return ok(doc)
			}
		}
		return ok(nil)
	case "delete":
		query, _ := req["query"].(map[string]any)
		kept := s.collections[collection][:0]
		deleted := 0
		for _, doc := range s.collections[collection] {
			if matches(doc, query) {
				deleted++
				continue
			}
			kept = append(kept, doc)
		}
		s.collections[collection] = kept
		return ok(map[string]any{"deleted": float64(deleted)})
	case "create_bucket":
		if _, exists := s.buckets[bucket]; !exists {
			s.buckets[bucket] = make(map[string]object)
		}
		return ok("ok")
	case "put_object":
		b, exists := s.buckets[bucket]
		if !exists {
			return fail(fmt.Sprintf("bucket %q not found", bucket))
		}
		content, _ := req["data"].(string)
		contentType, _ := req["content_type"].(string)
		meta := map[string]string{}
		if m, isMap := req["metadata"].(map[string]any); isMap {
			for k, v := range m {
				meta[k], _ = v.(string)
			}
		}
		b[key] = object{content: content, contentType: contentType, metadata: meta}
		return ok(map[string]any{"key": key, "size": float64(len(content))})
	case "get_object":
		obj, exists := s.buckets[bucket][key]
		if !exists {
			return fail(fmt.Sprintf("object %q not found", key))
		}
		meta := map[string]any{"content_type": obj.contentType}
		for k, v := range obj.metadata {
			meta[k] = v
		}
		return ok(map[string]any{"content": obj.content, "metadata": meta})
	case "delete_object":
		if _, exists := s.buckets[bucket][key]; !exists {
			return fail(fmt.Sprintf("object %q not found", key))
		}
		delete(s.buckets[bucket], key)
		return ok("ok")
	}
	return fail("unknown command: " + cmd)
}

func matches(doc, query map[string]any) bool {
	for k, want := range query {
		if fmt.Sprint(doc[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
