package helpers

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/campaign-mailer/internal/app"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory sqlite database with every table
// migrated. One connection keeps transactions on the same handle.
func SetupTestDB(t *testing.T) *pg.DB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), pg.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(repository.Entities()...))
	return pg.New(db, db)
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

// TestServer is the full API served over an in-memory listener.
type TestServer struct {
	t      *testing.T
	engine *xhttp.Engine
	client *fasthttp.Client
}

func StartServer(t *testing.T, db *pg.DB, opts app.Options) *TestServer {
	ln := fasthttputil.NewInmemoryListener()

	opt := xhttp.DefaultServerOption
	opt.Name = "campaign-mailer-test"
	engine := app.NewServer(db, opt, opts)
	engine.DoRouting()

	go func() {
		_ = engine.Server.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = engine.Server.Shutdown()
		_ = ln.Close()
	})

	return &TestServer{
		t:      t,
		engine: engine,
		client: &fasthttp.Client{
			Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
		},
	}
}

// Envelope is the decoded body of every API response.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Do sends a request and decodes the response envelope. A non-nil body that
// is not a []byte or string is JSON encoded.
func (s *TestServer) Do(method, path string, body any) (int, Envelope) {
	s.t.Helper()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI("http://campaign-mailer" + app.APIPrefix + path)
	switch b := body.(type) {
	case nil:
	case []byte:
		req.SetBody(b)
	case string:
		req.SetBodyString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}

	require.NoError(s.t, s.client.DoTimeout(req, resp, 5*time.Second))

	var env Envelope
	if len(resp.Body()) > 0 {
		require.NoError(s.t, json.Unmarshal(resp.Body(), &env), string(resp.Body()))
	}
	return resp.StatusCode(), env
}

// DoData is Do that requires the expected status and decodes data into dst.
func (s *TestServer) DoData(method, path string, body any, status int, dst any) Envelope {
	s.t.Helper()
	code, env := s.Do(method, path, body)
	require.Equal(s.t, status, code, "%s %s: %s %s", method, path, env.Message, env.Error)
	if dst != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, dst))
	}
	return env
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func Ptr[T any](v T) *T {
	return &v
}
