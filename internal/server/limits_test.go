package server_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/go-translit/internal/server"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/transducer"
	"github.com/example/go-translit/internal/translit"
)

// ---------------------------------------------------------------------------
// request validation and limits
// ---------------------------------------------------------------------------

func TestTransliterate_OversizedContentLengthRejectedAs413(t *testing.T) {
	h := newTestHandler(t, server.WithMaxTextBytes(10))

	rec := post(h, "/transliterate", strings.NewReader(strings.Repeat("a", 11)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
	decodeError(t, rec)
}

func TestTransliterate_OversizedStreamRejectedAs413(t *testing.T) {
	h := newTestHandler(t, server.WithMaxTextBytes(10))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transliterate", strings.NewReader(strings.Repeat("a", 64)))
	req.ContentLength = -1 // unknown length, as with chunked uploads
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
}

func TestTransliterate_TextAtExactLimitIsAccepted(t *testing.T) {
	h := newTestHandler(t, server.WithMaxTextBytes(5))

	rec := post(h, "/transliterate", strings.NewReader("ababa"))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 for exactly-limit text, got %d", rec.Code)
	}
	if rec.Body.String() != "αβαβα" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTranslate_OversizedTextRejectedAs413(t *testing.T) {
	h := newTestHandler(t, server.WithMaxTextBytes(10))

	body := bytes.NewBufferString(`{"text":"` + strings.Repeat("x", 11) + `"}`)
	rec := post(h, "/translate", body)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
	decodeError(t, rec)
}

func TestTransliterate_RequestTimeoutCancelsInFlight(t *testing.T) {
	svc := &blockingService{blocked: make(chan struct{})}
	h := server.NewHandler(svc, server.WithRequestTimeout(20*time.Millisecond))

	rec := post(h, "/transliterate", strings.NewReader("abba"))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504 on timeout, got %d", rec.Code)
	}
	decodeError(t, rec)
}

func TestTranslate_RequestTimeoutCancelsInFlight(t *testing.T) {
	svc := &blockingService{blocked: make(chan struct{})}
	h := server.NewHandler(svc, server.WithRequestTimeout(20*time.Millisecond))

	rec := post(h, "/translate", bytes.NewBufferString(`{"text":"bad"}`))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504 on timeout, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// worker pool / concurrency throttling
// ---------------------------------------------------------------------------

func TestTransliterate_ConcurrencyThrottling(t *testing.T) {
	const workers = 2
	const totalRequests = 5

	var (
		mu         sync.Mutex
		peak       int
		current    int32
		releaseAll = make(chan struct{})
	)
	svc := &countingService{
		Service: newService(t, symtab.KeepOriginal),
		onEnter: func() {
			n := int(atomic.AddInt32(&current, 1))

			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			<-releaseAll
		},
		onExit: func() { atomic.AddInt32(&current, -1) },
	}

	h := server.NewHandler(svc, server.WithWorkers(workers))

	var wg sync.WaitGroup

	codes := make([]int, totalRequests)
	for i := range totalRequests {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			rec := post(h, "/transliterate", strings.NewReader("ab"))
			codes[idx] = rec.Code
		}(i)
	}

	// Give goroutines time to enter the service.
	time.Sleep(50 * time.Millisecond)
	close(releaseAll)
	wg.Wait()

	mu.Lock()
	got := peak
	mu.Unlock()

	if got > workers {
		t.Errorf("peak concurrency %d exceeded worker limit %d", got, workers)
	}

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: want 200, got %d", i, code)
		}
	}
}

func TestTransliterate_WaiterCancelledWhileThrottled(t *testing.T) {
	release := make(chan struct{})
	svc := &blockingService{blocked: release}

	h := server.NewHandler(svc, server.WithWorkers(1))

	// First request occupies the single worker slot.
	go func() {
		post(h, "/transliterate", strings.NewReader("first"))
	}()

	time.Sleep(20 * time.Millisecond)

	// Second request should be blocked waiting for a worker; cancel its context.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transliterate", strings.NewReader("second")).WithContext(ctx)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 when waiter context cancelled, got %d", rec.Code)
	}

	close(release) // unblock the first request
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// blockingService blocks every call until blocked is closed or the request
// context ends.
type blockingService struct {
	blocked chan struct{}
}

func (b *blockingService) wait(ctx context.Context) error {
	select {
	case <-b.blocked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingService) Transliterate(ctx context.Context, _ io.Reader, _ io.Writer) (transducer.Stats, error) {
	return transducer.Stats{}, b.wait(ctx)
}

func (b *blockingService) Translate(ctx context.Context, text string) (translit.Translation, error) {
	return translit.Translation{Text: text}, b.wait(ctx)
}

func (b *blockingService) Table() *symtab.Table { return nil }

// countingService calls onEnter/onExit around each transliteration.
type countingService struct {
	*translit.Service
	onEnter func()
	onExit  func()
}

func (c *countingService) Transliterate(ctx context.Context, r io.Reader, w io.Writer) (transducer.Stats, error) {
	c.onEnter()
	defer c.onExit()

	return c.Service.Transliterate(ctx, r, w)
}

var (
	_ server.Transliterator = (*blockingService)(nil)
	_ server.Transliterator = (*countingService)(nil)
)
