package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
)

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// Upload posts a single file as multipart/form-data under field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader, progress ProgressFunc) (*Envelope, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	total := int64(buf.Len())
	body := &progressReader{r: bytes.NewReader(buf.Bytes()), total: total, fn: progress}
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.send(req, true)
	if err == nil {
		body.finish()
	}
	return env, err
}

// progressReader reports each whole-percent step as the transport consumes the body.
type progressReader struct {
	r     io.Reader
	total int64

	mu   sync.Mutex
	read int64
	last int
	fn   ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.advance(int64(n))
	}
	return n, err
}

func (p *progressReader) advance(n int64) {
	p.mu.Lock()
	p.read += n
	pct := 100
	if p.total > 0 {
		pct = int(p.read * 100 / p.total)
	}
	if pct > 100 {
		pct = 100
	}
	fire := pct > p.last
	if fire {
		p.last = pct
	}
	fn := p.fn
	p.mu.Unlock()
	if fire && fn != nil {
		fn(pct)
	}
}

func (p *progressReader) finish() {
	p.mu.Lock()
	fire := p.last < 100
	p.last = 100
	fn := p.fn
	p.mu.Unlock()
	if fire && fn != nil {
		fn(100)
	}
}
