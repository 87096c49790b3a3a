// Package oxidb is a small client for oxidb-server covering the document and
// blob commands the file host needs.
//
// Wire format: every message is a 4-byte little-endian length followed by a
// JSON payload. Replies are {"ok": true, "data": ...} or
// {"ok": false, "error": "..."}.
package oxidb

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// MaxFrame bounds a single reply.
const MaxFrame = 64 << 20

// Client is safe for concurrent use; requests are serialised on the
// connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
}

// Dial connects to addr ("host:port").
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("oxidb: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func writeFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("oxidb: read length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrame {
		return nil, fmt.Errorf("oxidb: frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("oxidb: read payload: %w", err)
	}
	return payload, nil
}

// call sends one command and returns the data of a successful reply. The
// context deadline, if any, bounds the round trip.
func (c *Client) call(ctx context.Context, cmd map[string]any) (any, error) {
	req, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("oxidb: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(dl)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := writeFrame(c.conn, req); err != nil {
		return nil, fmt.Errorf("oxidb: send: %w", err)
	}
	raw, err := readFrame(c.conn)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Data  any    `json:"data"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("oxidb: unmarshal response: %w", err)
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		if strings.Contains(strings.ToLower(msg), "not found") {
			return nil, &Error{Msg: msg, NotFound: true}
		}
		return nil, &Error{Msg: msg}
	}
	return resp.Data, nil
}

// Ping returns "pong" from a healthy server.
func (c *Client) Ping(ctx context.Context) (string, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "ping"})
	if err != nil {
		return "", err
	}
	s, _ := data.(string)
	return s, nil
}

func (c *Client) CreateUniqueIndex(ctx context.Context, collection, field string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "create_unique_index", "collection": collection, "field": field})
	return err
}

// Insert stores doc and returns the server reply (it carries the new "id").
func (c *Client) Insert(ctx context.Context, collection string, doc map[string]any) (map[string]any, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "insert", "collection": collection, "doc": doc})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// FindOne returns the first document matching query, or nil.
func (c *Client) FindOne(ctx context.Context, collection string, query map[string]any) (map[string]any, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "find_one", "collection": collection, "query": query})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

func (c *Client) Delete(ctx context.Context, collection string, query map[string]any) error {
	_, err := c.call(ctx, map[string]any{"cmd": "delete", "collection": collection, "query": query})
	return err
}

func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "create_bucket", "bucket": bucket})
	return err
}

// PutObject stores a blob. Content travels base64 encoded.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	cmd := map[string]any{
		"cmd":          "put_object",
		"bucket":       bucket,
		"key":          key,
		"data":         base64.StdEncoding.EncodeToString(data),
		"content_type": contentType,
	}
	if len(metadata) > 0 {
		cmd["metadata"] = metadata
	}
	_, err := c.call(ctx, cmd)
	return err
}

// GetObject returns a blob and its metadata.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, map[string]any, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "get_object", "bucket": bucket, "key": key})
	if err != nil {
		return nil, nil, err
	}
	m, _ := data.(map[string]any)
	content, _ := m["content"].(string)
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, nil, fmt.Errorf("oxidb: decode base64: %w", err)
	}
	meta, _ := m["metadata"].(map[string]any)
	return decoded, meta, nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "delete_object", "bucket": bucket, "key": key})
	return err
}
